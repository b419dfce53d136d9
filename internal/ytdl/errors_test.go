package ytdl

import (
	"context"
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text     string
		expected DownloadClass
	}{
		{"ERROR: Sign in to confirm you're not a bot", ClassBlocked},
		{"HTTP Error 403: Forbidden", ClassBlocked},
		{"ERROR: Requested format is not available", ClassFormatUnavailable},
		{"ffprobe and ffmpeg not found. Please install", ClassTranscodeUnavailable},
		{"ERROR: unable to download webpage: <urlopen error timed out>", ClassNetworkError},
		{"Temporary failure in name resolution", ClassNetworkError},
		{"something novel exploded", ClassUnknown},
	}
	for _, test := range tests {
		de := Classify(errors.New(test.text), "")
		if de.Class != test.expected {
			t.Errorf("Classify(%q).Class = %s, expected %s", test.text, de.Class, test.expected)
		}
	}
}

func TestClassify_UsesStderr(t *testing.T) {
	de := Classify(errors.New("exit status 1"), "ERROR: Requested format is not available")
	if de.Class != ClassFormatUnavailable {
		t.Errorf("Class = %s, expected %s", de.Class, ClassFormatUnavailable)
	}
}

func TestClassify_Unwrap(t *testing.T) {
	base := context.DeadlineExceeded
	de := Classify(base, "")
	if !errors.Is(de, context.DeadlineExceeded) {
		t.Error("DownloadError should unwrap to the underlying error")
	}
}

func TestIsNetworkText(t *testing.T) {
	if !IsNetworkText(errors.New("probe: connection refused")) {
		t.Error("connection refused should read as network trouble")
	}
	if IsNetworkText(errors.New("probe: no video formats found")) {
		t.Error("missing formats is not network trouble")
	}
	if IsNetworkText(nil) {
		t.Error("nil error is not network trouble")
	}
}
