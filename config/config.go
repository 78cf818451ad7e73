package config

import "embed"

// Store holds the yaml configs of every namespace, network and environment.
// Local secrets (.secrets.yml) are read from disk and never embedded.
//
//go:embed discoveer/*
var Store embed.FS
