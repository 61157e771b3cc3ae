package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestS5EventFilter(t *testing.T) {
	events := []fsnotify.Event{
		{Name: "a.fastq", Op: fsnotify.Create},
		{Name: "b.fq.gz", Op: fsnotify.Create},
		{Name: "c.txt", Op: fsnotify.Create},
		{Name: "d.fastq", Op: fsnotify.Remove},
	}

	var accepted []string
	for _, ev := range events {
		if Accept(ev) {
			accepted = append(accepted, ev.Name)
		}
	}

	if len(accepted) != 1 || accepted[0] != "a.fastq" {
		t.Fatalf("accepted = %v, want exactly [a.fastq]", accepted)
	}
}

func TestAcceptRecognisesFqExtension(t *testing.T) {
	if !Accept(fsnotify.Event{Name: "reads.fq", Op: fsnotify.Create}) {
		t.Fatal("expected .fq to be accepted")
	}
}

func TestAcceptRejectsNonCreateOps(t *testing.T) {
	for _, op := range []fsnotify.Op{fsnotify.Write, fsnotify.Rename, fsnotify.Chmod, fsnotify.Remove} {
		if Accept(fsnotify.Event{Name: "a.fastq", Op: op}) {
			t.Fatalf("op %v should not be accepted", op)
		}
	}
}

func TestAcceptIsCaseSensitive(t *testing.T) {
	if Accept(fsnotify.Event{Name: "reads.FASTQ", Op: fsnotify.Create}) {
		t.Fatal("extension matching must be case-sensitive per the design")
	}
}

func TestSubmitterWiring(t *testing.T) {
	dir := t.TempDir()
	fastqPath := filepath.Join(dir, "x.fastq")
	txtPath := filepath.Join(dir, "x.txt")
	if err := os.WriteFile(fastqPath, []byte("@r\nACGT\n+\nIIII\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(txtPath, []byte("not a read"), 0o644); err != nil {
		t.Fatal(err)
	}

	var submittedPaths []string
	w := &Watcher{submit: func(j Job) bool {
		submittedPaths = append(submittedPaths, j.Path)
		return true
	}}
	w.handle(fsnotify.Event{Name: fastqPath, Op: fsnotify.Create})
	w.handle(fsnotify.Event{Name: txtPath, Op: fsnotify.Create})
	if len(submittedPaths) != 1 || submittedPaths[0] != fastqPath {
		t.Fatalf("submittedPaths = %v, want [%s]", submittedPaths, fastqPath)
	}
}

func TestHandleRejectsDirectoryNamedLikeAFastq(t *testing.T) {
	dir := t.TempDir()
	dirPath := filepath.Join(dir, "lookslikeafile.fastq")
	if err := os.Mkdir(dirPath, 0o755); err != nil {
		t.Fatal(err)
	}

	var submittedPaths []string
	w := &Watcher{submit: func(j Job) bool {
		submittedPaths = append(submittedPaths, j.Path)
		return true
	}}
	w.handle(fsnotify.Event{Name: dirPath, Op: fsnotify.Create})
	if len(submittedPaths) != 0 {
		t.Fatalf("submittedPaths = %v, want none: a directory must not become a job", submittedPaths)
	}
}

func TestHandleRejectsSymlinkNamedLikeAFastq(t *testing.T) {
	dir := t.TempDir()
	targetPath := filepath.Join(dir, "real.fastq")
	if err := os.WriteFile(targetPath, []byte("@r\nACGT\n+\nIIII\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	linkPath := filepath.Join(dir, "link.fastq")
	if err := os.Symlink(targetPath, linkPath); err != nil {
		t.Fatal(err)
	}

	var submittedPaths []string
	w := &Watcher{submit: func(j Job) bool {
		submittedPaths = append(submittedPaths, j.Path)
		return true
	}}
	w.handle(fsnotify.Event{Name: linkPath, Op: fsnotify.Create})
	if len(submittedPaths) != 0 {
		t.Fatalf("submittedPaths = %v, want none: a symlink must not become a job", submittedPaths)
	}
}

func TestIsRegularFileRejectsMissingPath(t *testing.T) {
	if isRegularFile(filepath.Join(t.TempDir(), "gone.fastq")) {
		t.Fatal("expected a nonexistent path to be rejected")
	}
}
