package fixtures

import (
	"embed"
)

//go:embed ledger/*
var FixturesFS embed.FS
