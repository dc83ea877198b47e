package drive

import (
	"testing"

	drive "google.golang.org/api/drive/v3"
)

func TestIsVideo(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"clip.mp4", true},
		{"CLIP.MP4", true},
		{"clip.mov", true},
		{"clip.m4v", true},
		{"clip.webm", true},
		{"notes.txt", false},
		{"thumbnail.png", false},
		{"clip.mp4.json", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isVideo(tt.name); got != tt.want {
				t.Errorf("isVideo(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFilterVideoAssets(t *testing.T) {
	files := []*drive.File{
		{Id: "1", Name: "a.mp4", Size: 1024, ModifiedTime: "2025-07-04T10:30:00Z"},
		{Id: "2", Name: "readme.md", Size: 12},
		{Id: "3", Name: "b.webm", Size: 2048, ModifiedTime: "not-a-timestamp"},
	}

	assets := filterVideoAssets(files)

	if len(assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(assets))
	}
	if assets[0].ID != "1" || assets[0].Size != 1024 {
		t.Errorf("asset 0 = %+v", assets[0])
	}
	if assets[0].ModifiedTime.IsZero() {
		t.Error("asset 0 modified time not parsed")
	}
	if assets[1].ID != "3" {
		t.Errorf("asset 1 = %+v", assets[1])
	}
	if !assets[1].ModifiedTime.IsZero() {
		t.Error("unparseable modified time should stay zero")
	}
}

func TestProgressWriterCountsBytes(t *testing.T) {
	w := &progressWriter{total: 100}

	for i := 0; i < 10; i++ {
		if n, err := w.Write(make([]byte, 10)); n != 10 || err != nil {
			t.Fatalf("Write() = (%d, %v)", n, err)
		}
	}

	if w.written != 100 {
		t.Errorf("written = %d, want 100", w.written)
	}
}
