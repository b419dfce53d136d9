package ytdl

import (
	"strings"
	"testing"
)

func video(id string, height int) FormatDescriptor {
	return FormatDescriptor{ID: id, Kind: MediaMuxed, Height: height, Container: "mp4"}
}

func audio(id, container string) FormatDescriptor {
	return FormatDescriptor{ID: id, Kind: MediaAudioOnly, Container: container}
}

func TestBuildSelector_Video720(t *testing.T) {
	formats := []FormatDescriptor{
		video("18", 360), video("135", 480), video("22", 720), video("137", 1080),
	}
	sel := BuildSelector(KindVideo, "720", nil, formats, DefaultSelectorOptions())
	clauses := strings.Split(sel, "/")

	// 720 is the only height within the tolerance window; it leads, the
	// generic cap at the target follows.
	if clauses[0] != "bestvideo[height=720]+bestaudio" {
		t.Errorf("first clause = %q", clauses[0])
	}
	if clauses[1] != "bestvideo[height<=720]+bestaudio" {
		t.Errorf("second clause = %q", clauses[1])
	}
	if clauses[len(clauses)-1] != "best" {
		t.Errorf("last clause = %q", clauses[len(clauses)-1])
	}
	if !strings.Contains(sel, "best[height>=360]") {
		t.Errorf("missing half-quality floor in %q", sel)
	}
}

func TestBuildSelector_ToleranceWindow(t *testing.T) {
	formats := []FormatDescriptor{
		video("a", 420), video("b", 480), video("c", 560), video("d", 1080),
	}
	sel := BuildSelector(KindVideo, "480", nil, formats, DefaultSelectorOptions())
	clauses := strings.Split(sel, "/")

	// 480, 420 and 560 are all within ±100 of 480; closest first, ties lean
	// toward the lower height.
	want := []string{
		"bestvideo[height=480]+bestaudio",
		"bestvideo[height=420]+bestaudio",
		"bestvideo[height=560]+bestaudio",
	}
	for i, w := range want {
		if clauses[i] != w {
			t.Errorf("clause[%d] = %q, expected %q", i, clauses[i], w)
		}
	}
	if strings.Contains(sel, "height=1080") {
		t.Errorf("1080 leaked into tolerance window: %q", sel)
	}
}

func TestBuildSelector_ClauseCap(t *testing.T) {
	var formats []FormatDescriptor
	for h := 400; h <= 560; h += 20 {
		formats = append(formats, video("f", h))
	}
	sel := BuildSelector(KindVideo, "480", nil, formats, DefaultSelectorOptions())
	if got := len(strings.Split(sel, "/")); got > 8 {
		t.Errorf("selector has %d clauses, cap is 8", got)
	}
}

func TestBuildSelector_Best(t *testing.T) {
	formats := []FormatDescriptor{video("18", 360), video("137", 1080), video("22", 720)}
	sel := BuildSelector(KindVideo, "best", nil, formats, DefaultSelectorOptions())
	clauses := strings.Split(sel, "/")

	if clauses[0] != "bestvideo[height=1080]+bestaudio" {
		t.Errorf("first clause = %q, expected highest discovered height", clauses[0])
	}
	if clauses[len(clauses)-1] != "best" {
		t.Errorf("last clause = %q", clauses[len(clauses)-1])
	}
}

func TestBuildSelector_AudioPrefersKnownContainers(t *testing.T) {
	formats := []FormatDescriptor{
		audio("251", "webm"),
		audio("140", "m4a"),
		audio("139", "m4a"),
		audio("600", "mp3"),
	}
	sel := BuildSelector(KindAudio, "", formats, nil, DefaultSelectorOptions())
	clauses := strings.Split(sel, "/")

	want := []string{"140", "139", "600", "bestaudio", "best"}
	if len(clauses) != len(want) {
		t.Fatalf("clauses = %v, expected %v", clauses, want)
	}
	for i, w := range want {
		if clauses[i] != w {
			t.Errorf("clause[%d] = %q, expected %q", i, clauses[i], w)
		}
	}
}

func TestBuildSelector_AudioNoDiscoveredFormats(t *testing.T) {
	sel := BuildSelector(KindAudio, "", nil, nil, DefaultSelectorOptions())
	if sel != "bestaudio/best" {
		t.Errorf("selector = %q, expected generic fallbacks only", sel)
	}
}
