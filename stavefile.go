//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
	"s": Smoke,
}

const (
	binaryName = "hashdiff"
	mainPkg    = "./cmd/hashdiff"
	binDir     = "bin"
	coverFile  = "coverage.out"
)

// All runs the complete build pipeline.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build, Smoke)
	return nil
}

// Build compiles the hashdiff binary.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}
	return sh.RunV("go", "build", "-ldflags", buildLdflags(), "-o", binaryPath(binDir), mainPkg)
}

// Install builds and copies hashdiff to GOBIN, GOPATH/bin or /usr/local/bin.
func Install() error {
	st.Deps(Build)

	dir, err := installDir()
	if err != nil {
		return err
	}
	src, dst := binaryPath(binDir), binaryPath(dir)

	if st.Verbose() {
		fmt.Printf("Installing %s to %s\n", src, dst)
	}
	return sh.Copy(dst, src)
}

// Uninstall removes the installed hashdiff binary.
func Uninstall() error {
	dir, err := installDir()
	if err != nil {
		return err
	}
	target := binaryPath(dir)

	if _, err := os.Stat(target); os.IsNotExist(err) {
		if st.Verbose() {
			fmt.Printf("Binary not found at %s, nothing to uninstall\n", target)
		}
		return nil
	}

	if st.Verbose() {
		fmt.Printf("Removing %s\n", target)
	}
	return os.Remove(target)
}

// Test runs all tests with race detection.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Cover writes a coverage profile and prints the per-function summary.
func Cover() error {
	if err := sh.RunV("go", "test", "-coverprofile="+coverFile, "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-func="+coverFile)
}

// Smoke builds the binary and runs a bootstrap followed by a compare
// against a throwaway directory and data home.
func Smoke() error {
	st.Deps(Build)

	tmp, err := os.MkdirTemp("", "hashdiff-smoke-")
	if err != nil {
		return fmt.Errorf("creating smoke directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	root := filepath.Join(tmp, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0o644); err != nil {
		return err
	}

	env := map[string]string{
		"XDG_DATA_HOME":   filepath.Join(tmp, "data"),
		"XDG_STATE_HOME":  filepath.Join(tmp, "state"),
		"XDG_CONFIG_HOME": filepath.Join(tmp, "config"),
	}
	bin := binaryPath(binDir)

	if err := sh.RunWithV(env, bin, "-o", "plain", root); err != nil {
		return fmt.Errorf("bootstrap run: %w", err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("beta"), 0o644); err != nil {
		return err
	}
	return sh.RunWithV(env, bin, "-o", "plain", root)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if st.Verbose() {
		fmt.Printf("Removing %s/ and %s\n", binDir, coverFile)
	}
	if err := sh.Rm(coverFile); err != nil {
		return err
	}
	return sh.Rm(binDir + "/")
}

// Fmt formats all Go code.
func Fmt() error {
	if err := sh.Run("gofmt", "-w", "."); err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	return sh.Run("goimports", "-w", ".")
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// installDir resolves GOBIN, then GOPATH/bin, then /usr/local/bin.
func installDir() (string, error) {
	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return "", fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin != "" {
		return bin, nil
	}

	gopath, err := sh.Output(gocmd, "env", "GOPATH")
	if err != nil {
		return "", fmt.Errorf("determining GOPATH: %w", err)
	}
	if gopath != "" {
		return filepath.Join(gopath, "bin"), nil
	}
	return "/usr/local/bin", nil
}

func binaryPath(dir string) string {
	path := filepath.Join(dir, binaryName)
	if runtime.GOOS == "windows" {
		path += ".exe"
	}
	return path
}

// buildLdflags returns ldflags for version injection.
func buildLdflags() string {
	version := "dev"
	commit := "unknown"
	date := time.Now().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimSpace(v)
	}

	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}

	return fmt.Sprintf(
		"-X main.version=%s -X main.commit=%s -X main.date=%s",
		version, commit, date,
	)
}
