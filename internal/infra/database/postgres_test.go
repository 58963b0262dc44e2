package database

import (
	"testing"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/config"
)

func TestDSN_EscapesCredentials(t *testing.T) {
	got := DSN(config.PostgresSettings{
		Host:     "db",
		Port:     5432,
		User:     "shop",
		Password: "p@ss/word",
		Database: "commerce",
		SSLMode:  "disable",
	})
	want := "postgres://shop:p%40ss%2Fword@db:5432/commerce?sslmode=disable"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestSchema_Default(t *testing.T) {
	if got := Schema(config.PostgresSettings{}); got != "commerce" {
		t.Fatalf("expected commerce, got %q", got)
	}
	if got := Schema(config.PostgresSettings{Schema: "shop"}); got != "shop" {
		t.Fatalf("expected shop, got %q", got)
	}
}
