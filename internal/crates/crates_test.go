package crates

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscover_CargoToml(t *testing.T) {
	dir := t.TempDir()
	manifest := `[package]
name = "my-crate"
description = "does things"
version = "0.1.0"
`
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	found, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 crate, got %d: %+v", len(found), found)
	}
	if found[0].Name != "my-crate" {
		t.Errorf("expected name my-crate, got %s", found[0].Name)
	}
	if found[0].Description != "does things" {
		t.Errorf("expected description 'does things', got %s", found[0].Description)
	}
}

func TestDiscover_NoManifestSynthesizesVirtualCrate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	found, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected 1 synthesized crate, got %d", len(found))
	}
	if found[0].Name != filepath.Base(dir) {
		t.Errorf("expected synthesized name %s, got %s", filepath.Base(dir), found[0].Name)
	}
}

func TestAssign_LongestPrefixWins(t *testing.T) {
	dir := t.TempDir()
	outer := filepath.Join(dir, "outer")
	inner := filepath.Join(dir, "outer", "inner")
	if err := os.MkdirAll(inner, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	filePath := filepath.Join(inner, "a.go")
	if err := os.WriteFile(filePath, []byte("package a"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	outerCanonical, _ := filepath.Abs(outer)
	innerCanonical, _ := filepath.Abs(inner)

	crateList := []CrateInfo{
		{Name: "outer-crate", CanonicalRoot: outerCanonical},
		{Name: "inner-crate", CanonicalRoot: innerCanonical},
	}

	name, err := Assign(filePath, crateList)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if name != "inner-crate" {
		t.Errorf("expected inner-crate (longest prefix), got %s", name)
	}
}

func TestAssign_NoMatchFallsBackToWorkspace(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "orphan.go")
	if err := os.WriteFile(filePath, []byte("package x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	name, err := Assign(filePath, nil)
	if err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if name != WorkspaceSentinel {
		t.Errorf("expected workspace sentinel, got %s", name)
	}
}
