package editor

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"songwriter-go/services/songs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func songWithLyrics(text string) songs.Song {
	s := songs.New("History", time.Now())
	s.Lyrics = text
	return s
}

func TestHistory_UndoSteps(t *testing.T) {
	tests := []struct {
		name     string
		pushes   int
		expected int
		moved    bool
	}{
		{"single entry is a no-op", 0, 0, false},
		{"one step available", 1, 0, true},
		{"two steps back", 2, 0, true},
		{"from cursor four", 4, 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(DefaultHistoryLimit)
			h.Reset(songWithLyrics("v0"))
			for i := 1; i <= tt.pushes; i++ {
				h.Push(songWithLyrics(fmt.Sprintf("v%d", i)))
			}

			song, moved := h.Undo()
			assert.Equal(t, tt.moved, moved)
			assert.Equal(t, tt.expected, h.Index())
			if moved {
				assert.Equal(t, fmt.Sprintf("v%d", tt.expected), song.Lyrics)
			}
		})
	}
}

func TestHistory_BoundedAndEvictsOldest(t *testing.T) {
	h := NewHistory(DefaultHistoryLimit)
	h.Reset(songWithLyrics("v0"))
	for i := 1; i <= 30; i++ {
		h.Push(songWithLyrics(fmt.Sprintf("v%d", i)))
	}

	assert.Equal(t, DefaultHistoryLimit, h.Len())
	assert.Equal(t, DefaultHistoryLimit-1, h.Index())

	current, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "v30", current.Lyrics)

	for h.Index() > 0 {
		h.Undo()
	}
	oldest, _ := h.Current()
	assert.Equal(t, "v11", oldest.Lyrics)
}

func TestHistory_PushAfterUndoAppends(t *testing.T) {
	h := NewHistory(DefaultHistoryLimit)
	h.Reset(songWithLyrics("v0"))
	h.Push(songWithLyrics("v1"))
	h.Push(songWithLyrics("v2"))
	h.Push(songWithLyrics("v3"))

	h.Undo()
	require.Equal(t, 1, h.Index())

	h.Push(songWithLyrics("v4"))
	assert.Equal(t, 5, h.Len())
	assert.Equal(t, 4, h.Index())
}

func TestHistory_StoresCopies(t *testing.T) {
	h := NewHistory(DefaultHistoryLimit)
	s := songWithLyrics("v0")
	s.Categories = []string{"a"}
	h.Reset(s)
	s.Categories[0] = "mutated"

	current, _ := h.Current()
	assert.Equal(t, "a", current.Categories[0])
}

func TestDebouncer_CoalescesCalls(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Schedule(func() {
			calls.Add(1)
			last.Store(n)
		})
	}
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(5), last.Load())
	assert.False(t, d.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })

	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestDebouncer_DefaultDelay(t *testing.T) {
	assert.Equal(t, DefaultDebounce, NewDebouncer(0).Delay())
}
