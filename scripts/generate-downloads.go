//go:build ignore

// Package main simulates browser downloads into a directory for soak testing
// a running observer.
// Usage: go run scripts/generate-downloads.go -files 200 -output /tmp/dl -interval 50ms
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

var (
	numFiles  = flag.Int("files", 100, "Number of downloads to simulate")
	outputDir = flag.String("output", "testdata/downloads", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	interval  = flag.Duration("interval", 0, "Pause between downloads")
	partial   = flag.Bool("partial", true, "Write through a .crdownload file and rename, like Chrome")
)

var (
	extensions = []string{
		"pdf", "dwg", "dxf", "skp", "zip", "tar.gz", "jpg", "png", "mp4",
		"docx", "xlsx", "csv", "iso", "dmg", "epub", "mp3", "",
	}
	names = []string{
		"invoice", "report", "plan", "photo", "backup", "export", "notes",
		"scan", "draft", "release", "statement", "floorplan", "slides",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Simulating %d downloads into %s...\n", *numFiles, *outputDir)

	generated := 0
	for i := 0; i < *numFiles; i++ {
		if err := download(rng, i); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing download %d: %v\n", i, err)
			continue
		}
		generated++
		if *interval > 0 {
			time.Sleep(*interval)
		}
	}

	fmt.Printf("Generated %d files successfully.\n", generated)
}

func download(rng *rand.Rand, index int) error {
	name := fmt.Sprintf("%s_%d", names[rng.Intn(len(names))], index)
	if ext := extensions[rng.Intn(len(extensions))]; ext != "" {
		name += "." + ext
	}
	final := filepath.Join(*outputDir, name)

	content := make([]byte, 1024+rng.Intn(64*1024))
	_, _ = rng.Read(content)

	if !*partial {
		return os.WriteFile(final, content, 0644)
	}

	tmp := final + ".crdownload"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	// Write in chunks so the watcher sees the file grow.
	for off := 0; off < len(content); off += 8 * 1024 {
		end := min(off+8*1024, len(content))
		if _, err := f.Write(content[off:end]); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, final)
}
