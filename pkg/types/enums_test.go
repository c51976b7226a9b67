package types

import "testing"

func TestStreamState(t *testing.T) {
	tests := []struct {
		s    StreamState
		want string
	}{
		{StreamNotSubscribed, "not_subscribed"},
		{StreamSubscribed, "subscribed"},
		{StreamCompleted, "completed"},
		{StreamCancelled, "cancelled"},
		{StreamState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Errorf("StreamState(%d).String() = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestStreamStateIsTerminal(t *testing.T) {
	tests := []struct {
		s    StreamState
		want bool
	}{
		{StreamNotSubscribed, false},
		{StreamSubscribed, false},
		{StreamCompleted, true},
		{StreamCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.s.IsTerminal(); got != tt.want {
			t.Errorf("%v.IsTerminal() = %v, want %v", tt.s, got, tt.want)
		}
	}
}

func TestEventKind(t *testing.T) {
	tests := []struct {
		k    EventKind
		want string
	}{
		{KindHeaders, "headers"},
		{KindData, "data"},
		{KindTrailers, "trailers"},
		{KindEnd, "end"},
		{KindError, "error"},
		{EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.k.String(); got != tt.want {
				t.Errorf("EventKind(%d).String() = %q, want %q", tt.k, got, tt.want)
			}
		})
	}
}

func TestEventKindIsTerminal(t *testing.T) {
	tests := []struct {
		k    EventKind
		want bool
	}{
		{KindHeaders, false},
		{KindData, false},
		{KindTrailers, false},
		{KindEnd, true},
		{KindError, true},
	}

	for _, tt := range tests {
		if got := tt.k.IsTerminal(); got != tt.want {
			t.Errorf("%v.IsTerminal() = %v, want %v", tt.k, got, tt.want)
		}
	}
}
