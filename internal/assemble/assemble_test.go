package assemble

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindClips(t *testing.T) {
	t.Run("orders by scene number", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "scene_2_middle.mp4")
		touch(t, dir, "scene_10_finale.mp4")
		touch(t, dir, "scene_1_opening.mp4")
		touch(t, dir, "notes.txt")

		clips, err := FindClips(dir, "")
		if err != nil {
			t.Fatalf("FindClips() error = %v", err)
		}
		if len(clips) != 3 {
			t.Fatalf("clips = %d, want 3", len(clips))
		}
		want := []int{1, 2, 10}
		for i, n := range want {
			if clips[i].SceneNumber != n {
				t.Errorf("position %d scene = %d, want %d", i, clips[i].SceneNumber, n)
			}
		}
	})

	t.Run("unnumbered clips sort last alphabetically", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "zeta.mp4")
		touch(t, dir, "alpha.mp4")
		touch(t, dir, "scene_3_x.mp4")

		clips, err := FindClips(dir, "")
		if err != nil {
			t.Fatal(err)
		}
		names := make([]string, len(clips))
		for i, c := range clips {
			names[i] = filepath.Base(c.Path)
		}
		want := []string{"scene_3_x.mp4", "alpha.mp4", "zeta.mp4"}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("order = %v, want %v", names, want)
				break
			}
		}
	})

	t.Run("project filter is case insensitive", func(t *testing.T) {
		dir := t.TempDir()
		touch(t, dir, "scene_1_MyProject.mp4")
		touch(t, dir, "scene_2_other.mp4")

		clips, err := FindClips(dir, "myproject")
		if err != nil {
			t.Fatal(err)
		}
		if len(clips) != 1 || !strings.Contains(clips[0].Path, "MyProject") {
			t.Errorf("clips = %+v", clips)
		}
	})

	t.Run("missing dir", func(t *testing.T) {
		if _, err := FindClips("/does/not/exist", ""); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestWriteConcatList(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "scene_1_a.mp4")
	touch(t, dir, "scene_2_b.mp4")

	clips, err := FindClips(dir, "")
	if err != nil {
		t.Fatal(err)
	}

	output := filepath.Join(dir, "final.mp4")
	listPath, err := writeConcatList(clips, output)
	if err != nil {
		t.Fatalf("writeConcatList() error = %v", err)
	}
	t.Cleanup(func() { os.Remove(listPath) })

	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	for i, name := range []string{"scene_1_a.mp4", "scene_2_b.mp4"} {
		if !strings.HasPrefix(lines[i], "file '") || !strings.Contains(lines[i], name) {
			t.Errorf("line %d = %q", i, lines[i])
		}
	}
}

func TestConcatArgs(t *testing.T) {
	t.Run("stream copy", func(t *testing.T) {
		args := strings.Join(concatArgs("list.txt", "out.mp4", false), " ")
		for _, want := range []string{"-f concat", "-safe 0", "-i list.txt", "-c copy", "-y out.mp4"} {
			if !strings.Contains(args, want) {
				t.Errorf("args missing %q: %s", want, args)
			}
		}
	})

	t.Run("re-encode", func(t *testing.T) {
		args := strings.Join(concatArgs("list.txt", "out.mp4", true), " ")
		for _, want := range []string{"-c:v libx264", "-crf 23", "-c:a aac"} {
			if !strings.Contains(args, want) {
				t.Errorf("args missing %q: %s", want, args)
			}
		}
		if strings.Contains(args, "-c copy") {
			t.Errorf("re-encode args still stream copy: %s", args)
		}
	})
}

func TestMusicArgs(t *testing.T) {
	args := strings.Join(musicArgs("video.mp4", "music.mp3", "out.mp4", 2), " ")
	for _, want := range []string{
		"-i video.mp4",
		"-i music.mp3",
		"[1:a]afade=t=out:st=0:d=2[audio]",
		"-map 0:v",
		"-map [audio]",
		"-c:v copy",
		"-c:a aac",
		"-shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestCombineRequiresTwoClips(t *testing.T) {
	err := Combine(context.Background(), []Clip{{Path: "one.mp4"}}, Options{Output: "out.mp4"})
	if err == nil {
		t.Fatal("expected error for single clip")
	}
}

func TestIsMonotonousDTS(t *testing.T) {
	dts := &MuxError{Op: "concat", Output: "Non-monotonous DTS in output stream 0:0", Err: errors.New("exit status 1")}
	if !isMonotonousDTS(dts) {
		t.Error("DTS failure not detected")
	}
	other := &MuxError{Op: "concat", Output: "no such file", Err: errors.New("exit status 1")}
	if isMonotonousDTS(other) {
		t.Error("unrelated failure detected as DTS")
	}
	if isMonotonousDTS(errors.New("plain")) {
		t.Error("plain error detected as DTS")
	}
}
