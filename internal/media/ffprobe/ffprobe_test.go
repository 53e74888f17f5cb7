package ffprobe

import (
	"reflect"
	"testing"
)

func sampleResult() Result {
	return Result{
		Streams: []Stream{
			{Index: 0, CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080},
			{Index: 1, CodecType: "audio", CodecName: "aac", Tags: map[string]string{"language": "jpn"}},
			{Index: 2, CodecType: "audio", CodecName: "aac", Tags: map[string]string{"language": "ger"}},
			{Index: 3, CodecType: "subtitle", CodecName: "ass", Tags: map[string]string{"language": "de"}},
		},
		Format: Format{
			Duration: "1422.37",
			Size:     "734003200",
		},
	}
}

func TestResultStreamHelpers(t *testing.T) {
	result := sampleResult()
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if got := len(result.AudioStreams()); got != 2 {
		t.Fatalf("expected 2 audio streams, got %d", got)
	}
	if got := len(result.SubtitleStreams()); got != 1 {
		t.Fatalf("expected 1 subtitle stream, got %d", got)
	}
	if result.DurationSeconds() != 1422.37 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 734003200 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if result.DurationSeconds() != 0 {
		t.Fatalf("expected duration 0, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestAudioIndicesByLanguage(t *testing.T) {
	result := sampleResult()

	// "de" must match the "ger" tag form and return the container index.
	if got := result.AudioIndicesByLanguage("de"); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("expected [2] for de, got %v", got)
	}
	if got := result.AudioIndicesByLanguage("ja"); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("expected [1] for ja, got %v", got)
	}
	if got := result.AudioIndicesByLanguage("de", "ja"); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("expected [1 2] for de+ja, got %v", got)
	}
	if got := result.AudioIndicesByLanguage("en"); got != nil {
		t.Fatalf("expected no english audio, got %v", got)
	}
	if got := result.AudioIndicesByLanguage(); got != nil {
		t.Fatalf("expected nil for empty language list, got %v", got)
	}
}

func TestAudioIndicesByLanguageMatchesRegionalTags(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "audio", Tags: map[string]string{"language": "de-DE"}},
		},
	}
	if got := result.AudioIndicesByLanguage("de"); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("expected regional tag to match base language, got %v", got)
	}
}

func TestHasSubtitleInLanguage(t *testing.T) {
	result := sampleResult()
	if !result.HasSubtitleInLanguage("de") {
		t.Fatal("expected german subtitle stream to be found")
	}
	if result.HasSubtitleInLanguage("en") {
		t.Fatal("did not expect english subtitle stream")
	}
}

func TestStreamLanguage(t *testing.T) {
	stream := Stream{Tags: map[string]string{"LANGUAGE": "GER"}}
	if got := stream.Language(); got != "ger" {
		t.Fatalf("expected normalized tag ger, got %q", got)
	}
	if got := (Stream{}).Language(); got != "" {
		t.Fatalf("expected empty language for untagged stream, got %q", got)
	}
}
