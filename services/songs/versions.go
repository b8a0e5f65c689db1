package songs

import "time"

// MaxVersions is how many snapshots a song keeps.
const MaxVersions = 5

// Version is a saved snapshot of a song.
type Version struct {
	Title     string    `json:"title"`
	Lyrics    string    `json:"lyrics"`
	Style     Style     `json:"style"`
	Timestamp time.Time `json:"timestamp"`
}

func (v Version) clone() Version {
	v.Style = v.Style.Clone()
	return v
}

// SaveVersion prepends a snapshot of song and keeps the newest MaxVersions.
func SaveVersion(song Song, now time.Time) Song {
	out := song.Clone()
	snapshot := Version{
		Title:     song.Title,
		Lyrics:    song.Lyrics,
		Style:     song.Style.Clone(),
		Timestamp: now,
	}
	versions := make([]Version, 0, MaxVersions)
	versions = append(versions, snapshot)
	versions = append(versions, out.Versions...)
	if len(versions) > MaxVersions {
		versions = versions[:MaxVersions]
	}
	out.Versions = versions
	return out
}

// RevertToVersion copies title, lyrics and style from the snapshot at index.
// The snapshot stays in the list. ok is false for an out-of-range index.
func RevertToVersion(song Song, index int) (Song, bool) {
	if index < 0 || index >= len(song.Versions) {
		return song, false
	}
	out := song.Clone()
	v := song.Versions[index]
	out.Title = v.Title
	out.Lyrics = v.Lyrics
	out.Style = v.Style.Clone()
	return out, true
}

// RemoveVersion deletes the snapshot at index. ok is false for an
// out-of-range index.
func RemoveVersion(song Song, index int) (Song, bool) {
	if index < 0 || index >= len(song.Versions) {
		return song, false
	}
	out := song.Clone()
	out.Versions = append(out.Versions[:index], out.Versions[index+1:]...)
	return out, true
}
