// Package database embed dosyası — local store migration'larını binary'ye gömer.
//
// //go:embed directive'i derleme zamanında dosyaları binary'nin içine gömer —
// deploy edilen binary yanında migration dosyalarına ihtiyaç duymaz.
package database

import "embed"

// LocalStoreMigrations, migrations/ dizinindeki SQL dosyalarını içerir.
// database.New "migrations/" prefix'ini kendisi soyar.
//
//go:embed migrations/*.sql
var LocalStoreMigrations embed.FS
