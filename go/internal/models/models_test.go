package models

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParsePreset(t *testing.T) {
	for _, s := range []string{"25", "50", "custom"} {
		if _, err := ParsePreset(s); err != nil {
			t.Fatalf("ParsePreset(%q) = %v", s, err)
		}
	}
	if _, err := ParsePreset("15"); !errors.Is(err, ErrInvalidPreset) {
		t.Fatalf("ParsePreset(15) = %v, want ErrInvalidPreset", err)
	}
}

func TestPresetSeconds(t *testing.T) {
	tests := []struct {
		preset  Preset
		minutes int
		want    int64
	}{
		{PresetTwentyFive, 99, 1500},
		{PresetFifty, 99, 3000},
		{PresetCustom, 40, 2400},
	}
	for _, tt := range tests {
		if got := tt.preset.Seconds(tt.minutes); got != tt.want {
			t.Errorf("%s.Seconds(%d) = %d, want %d", tt.preset, tt.minutes, got, tt.want)
		}
	}
}

func TestPresetForDuration(t *testing.T) {
	tests := []struct {
		duration    int64
		wantPreset  Preset
		wantMinutes int
	}{
		{1500, PresetTwentyFive, DefaultCustomMinutes},
		{3000, PresetFifty, DefaultCustomMinutes},
		{600, PresetCustom, 10},
		{0, PresetCustom, DefaultCustomMinutes},
		{30, PresetCustom, DefaultCustomMinutes},
	}
	for _, tt := range tests {
		p, m := PresetForDuration(tt.duration)
		if p != tt.wantPreset || m != tt.wantMinutes {
			t.Errorf("PresetForDuration(%d) = %s/%d, want %s/%d", tt.duration, p, m, tt.wantPreset, tt.wantMinutes)
		}
	}
}

func TestStatusValidate(t *testing.T) {
	valid := Status{RoomID: "abc123", UserID: "alice", State: TimerStateIdle}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	bad := []Status{
		{UserID: "alice", State: TimerStateIdle},
		{RoomID: "abc123", State: TimerStateIdle},
		{RoomID: "abc123", UserID: "alice", State: "paused"},
		{RoomID: "abc123", UserID: "alice", State: TimerStateRunning, Duration: -1},
		{RoomID: "abc123", UserID: "alice", State: TimerStateRunning, StartTS: -5},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidRecord", s, err)
		}
	}
}

func TestStatusValidateLengths(t *testing.T) {
	long := strings.Repeat("a", MaxMessageLength+1)
	wide := strings.Repeat("é", MaxMessageLength)

	ok := Status{RoomID: "abc123", UserID: "alice", State: TimerStateIdle, Message: StringPtr(wide)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("message of %d characters rejected: %v", MaxMessageLength, err)
	}

	bad := []Status{
		{RoomID: "abc123", UserID: "alice", State: TimerStateIdle, Message: StringPtr(long)},
		{RoomID: "abc123", UserID: strings.Repeat("n", MaxIDLength+1), State: TimerStateIdle},
		{RoomID: strings.Repeat("r", MaxIDLength+1), UserID: "alice", State: TimerStateIdle},
		{RoomID: "abc123", UserID: "alice", State: TimerStateIdle, Color: StringPtr(strings.Repeat("f", MaxColorLength+1))},
	}
	for _, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Validate() = %v, want ErrInvalidRecord", err)
		}
	}
}

func TestTruncateMessage(t *testing.T) {
	if got := TruncateMessage("short"); got != "short" {
		t.Errorf("TruncateMessage(short) = %q", got)
	}
	got := TruncateMessage(strings.Repeat("é", MaxMessageLength+20))
	if n := utf8.RuneCountInString(got); n != MaxMessageLength {
		t.Errorf("truncated length = %d, want %d", n, MaxMessageLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a character")
	}
}

func TestRoomValidate(t *testing.T) {
	if err := (Room{RoomID: "abc123", Title: "Thesis crew"}).Validate(); err != nil {
		t.Fatalf("valid room rejected: %v", err)
	}
	bad := []Room{
		{Title: "no id"},
		{RoomID: "abc123", Title: strings.Repeat("t", MaxTitleLength+1)},
		{RoomID: strings.Repeat("r", MaxIDLength+1)},
	}
	for _, r := range bad {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidRecord", r.RoomID, err)
		}
	}
}

func TestDisplayDefaults(t *testing.T) {
	var s Status
	if s.MessageOrPlaceholder() != MessagePlaceholder {
		t.Errorf("message = %q", s.MessageOrPlaceholder())
	}
	if s.ColorOrDefault() != DefaultColor {
		t.Errorf("color = %q", s.ColorOrDefault())
	}

	s.Message = StringPtr("writing")
	s.Color = StringPtr("#f87171")
	if s.MessageOrPlaceholder() != "writing" || s.ColorOrDefault() != "#f87171" {
		t.Errorf("got %q %q", s.MessageOrPlaceholder(), s.ColorOrDefault())
	}
}

func TestRoomDisplayTitle(t *testing.T) {
	var nilRoom *Room
	if nilRoom.DisplayTitle() != "" {
		t.Error("nil room should have empty title")
	}
	r := &Room{RoomID: "abc123"}
	if r.DisplayTitle() != "abc123" {
		t.Errorf("untitled room = %q", r.DisplayTitle())
	}
	r.Title = "Thesis crew"
	if r.DisplayTitle() != "Thesis crew" {
		t.Errorf("titled room = %q", r.DisplayTitle())
	}
	if id := NewRoomID(); len(id) != 6 {
		t.Errorf("NewRoomID() = %q, want 6 chars", id)
	}
}
