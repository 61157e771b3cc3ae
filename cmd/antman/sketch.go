package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/will-rowe/antman/internal/bigsi"
	"github.com/will-rowe/antman/internal/bloom"
	"github.com/will-rowe/antman/internal/config"
	"github.com/will-rowe/antman/internal/logx"
	"github.com/will-rowe/antman/internal/sketch"
)

func newSketchCmd() *cobra.Command {
	var (
		kSize        int
		elementCount uint64
		fpRate       float64
		dbDir        string
	)

	cmd := &cobra.Command{
		Use:   "sketch [FILES... | -]",
		Short: "build a BIGSI reference index from one or more FASTA files",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := loadOrDefaultRaw(configPath)
			if err != nil {
				return err
			}
			if err := requireNotRunning(raw); err != nil {
				return err
			}

			if cmd.Flags().Changed("k") {
				raw.KSize = kSize
			}
			if cmd.Flags().Changed("m") {
				raw.ElementCount = elementCount
			}
			if cmd.Flags().Changed("e") {
				raw.FPRate = fpRate
			}
			if cmd.Flags().Changed("o") {
				raw.DBDir = dbDir
			}
			if raw.DBDir == "" {
				raw.DBDir = config.DefaultDBDir
			}

			log := logx.NewDefault()
			paths := args
			if len(paths) == 0 {
				paths = []string{"-"}
			}

			sizer, err := bloom.New(raw.ElementCount, raw.FPRate)
			if err != nil {
				return err
			}
			m, k := sizer.M(), sizer.K()

			perFile := make([]map[string]*bloom.Filter, 0, len(paths))
			total := 0
			for _, p := range paths {
				resolvedPath, cleanup, err := materialisePath(p)
				if err != nil {
					return err
				}
				entries, err := sketch.BuildReferences(resolvedPath, m, k, raw.KSize, log)
				cleanup()
				if err != nil {
					return fmt.Errorf("sketching %s: %w", p, err)
				}
				perFile = append(perFile, entries)
				total += len(entries)
			}
			if total == 0 {
				return fmt.Errorf("no reference sequences found in input")
			}

			b, err := bigsi.NewBuilder(m, k, uint64(total))
			if err != nil {
				return err
			}
			for _, entries := range perFile {
				if len(entries) == 0 {
					continue
				}
				if err := b.Add(entries, len(entries)); err != nil {
					return err
				}
			}
			idx, err := b.Index()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(raw.DBDir, 0o755); err != nil {
				return fmt.Errorf("creating db directory: %w", err)
			}
			if err := idx.Flush(raw.DBDir); err != nil {
				return err
			}

			log.Info(logx.ComponentBigsi, "finished sketching", map[string]interface{}{
				"references": total, "dbDir": raw.DBDir,
			})
			return config.Save(configPath, raw)
		},
	}

	cmd.Flags().IntVarP(&kSize, "k", "k", config.DefaultKSize, "k-mer size")
	cmd.Flags().Uint64VarP(&elementCount, "m", "m", config.DefaultMaxElements, "estimated elements per filter")
	cmd.Flags().Float64VarP(&fpRate, "e", "e", config.DefaultBloomFPRate, "target false-positive rate")
	cmd.Flags().StringVarP(&dbDir, "o", "o", "", "output reference database directory")
	return cmd
}

// materialisePath resolves "-" to a temp file holding stdin's contents
// (sketch.Open only reads named files), and passes every other path
// through unchanged. The returned cleanup removes any temp file created.
func materialisePath(p string) (string, func(), error) {
	if p != "-" {
		return p, func() {}, nil
	}
	f, err := os.CreateTemp("", "antman-stdin-*.fasta")
	if err != nil {
		return "", nil, fmt.Errorf("buffering stdin: %w", err)
	}
	if _, err := io.Copy(f, os.Stdin); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("buffering stdin: %w", err)
	}
	f.Close()
	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}

// loadOrDefaultRaw loads the config at path, or returns a fresh default
// (rooted at the current directory) if it does not yet exist.
func loadOrDefaultRaw(path string) (config.Raw, error) {
	if _, err := os.Stat(path); err != nil {
		cwd, _ := os.Getwd()
		return config.Default(cwd, filepath.Join(cwd, config.DefaultDBDir)), nil
	}
	return config.LoadRaw(path)
}
