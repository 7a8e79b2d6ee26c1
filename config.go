package main

import (
	"path/filepath"
	"runtime"

	"github.com/xyproto/env/v2"
)

// Config holds the defaults that flags can override. They come from the
// environment:
//
//	WIST_VERBOSE        verbose tracing to stderr
//	WIST_OS, WIST_ARCH  target platform (default: the host)
//	WIST_MANIFEST_PATH  list of directories searched for library manifests
//	WIST_OUTPUT         output file of "wist build" (default: program.bin)
//	WIST_COLOR          colored error messages, unless NO_COLOR is set
type Config struct {
	Verbose      bool
	Color        bool
	OS           string
	Arch         string
	Output       string
	ManifestDirs []string
}

// ConfigFromEnv reads the configuration from the environment
func ConfigFromEnv() Config {
	cfg := Config{
		Verbose: env.Bool("WIST_VERBOSE"),
		Color:   env.Bool("WIST_COLOR") && !env.Has("NO_COLOR"),
		OS:      env.Str("WIST_OS", runtime.GOOS),
		Arch:    env.Str("WIST_ARCH", runtime.GOARCH),
		Output:  env.Str("WIST_OUTPUT", "program.bin"),
	}
	cfg.ManifestDirs = splitDirs(env.Str("WIST_MANIFEST_PATH"))
	return cfg
}

// splitDirs splits a PATH-style list, dropping empty entries
func splitDirs(list string) []string {
	var dirs []string
	for _, dir := range filepath.SplitList(list) {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
