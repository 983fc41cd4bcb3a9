package devserver

import "embed"

// Migrations, gömülü platformun şema dosyalarını binary içinde taşır.
//
//go:embed migrations/*.sql
var Migrations embed.FS
