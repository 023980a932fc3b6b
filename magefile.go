//go:build mage

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binary = "decklingo"

// Default target when mage runs without arguments.
var Default = Build

func binaryName() string {
	if runtime.GOOS == "windows" {
		return binary + ".exe"
	}
	return binary
}

func npmCmd() string {
	if runtime.GOOS == "windows" {
		return "npm.cmd"
	}
	return "npm"
}

// Frontend installs and builds the browser frontend into public/, if a
// frontend/ directory is checked out.
func Frontend() error {
	if _, err := os.Stat("frontend"); os.IsNotExist(err) {
		fmt.Println("no frontend/ directory, skipping")
		return nil
	}
	if err := sh.RunV(npmCmd(), "--prefix", "frontend", "install"); err != nil {
		return fmt.Errorf("npm install: %w", err)
	}
	if err := sh.RunV(npmCmd(), "--prefix", "frontend", "run", "build"); err != nil {
		return fmt.Errorf("npm build: %w", err)
	}
	if err := sh.Rm("public"); err != nil {
		return err
	}
	return os.Rename("frontend/build", "public")
}

// Build compiles the server binary.
func Build() error {
	return sh.RunV("go", "build", "-o", binaryName(), ".")
}

// Test runs all package tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Run builds and starts the server with debug logging, serving public/ when present.
func Run() error {
	mg.Deps(Build)
	args := []string{"serve", "--log-level", "debug"}
	if _, err := os.Stat("public"); err == nil {
		args = append(args, "--public-dir", "public")
	}
	return sh.RunV("./"+binaryName(), args...)
}

// Clean removes build output and leftover uploads.
func Clean() error {
	for _, p := range []string{binaryName(), "uploads"} {
		if err := sh.Rm(p); err != nil {
			return err
		}
	}
	return nil
}
