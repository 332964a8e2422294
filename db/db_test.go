package db

import (
	"bytes"
	"fmt"
	"os"
	"testing"
)

const dbTestPath = "db_test.db"

func setupDB(t *testing.T) *DB {
	t.Helper()
	os.Remove(dbTestPath)
	database, err := CreateDefault(dbTestPath)
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
		os.Remove(dbTestPath)
	})
	return database
}

func TestSingleKeyValue(t *testing.T) {
	database := setupDB(t)

	key := []byte("hello")
	value := []byte("world")

	if err := database.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("Get returned %q, want %q", got, value)
	}
}

func TestIncrementalInserts(t *testing.T) {
	database := setupDB(t)

	for i := 0; i < 200; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		value := []byte(fmt.Sprintf("v%03d", i))
		if err := database.Put(key, value); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
		t.Logf("inserted %s -> %s", key, value)
	}

	n, err := database.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 200 {
		t.Fatalf("Len() = %d, want 200", n)
	}

	for i := 0; i < 200; i++ {
		key := []byte(fmt.Sprintf("k%03d", i))
		want := []byte(fmt.Sprintf("v%03d", i))
		got, err := database.Get(key)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", key, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get(%s) = %q, want %q", key, got, want)
		}
	}
}

func TestDeleteAndContains(t *testing.T) {
	database := setupDB(t)

	key := []byte("gone")
	if err := database.Put(key, []byte("data")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if ok, err := database.Contains(key); err != nil || !ok {
		t.Fatalf("Contains before delete = %v, %v; want true", ok, err)
	}
	if err := database.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, err := database.Contains(key); err != nil || ok {
		t.Fatalf("Contains after delete = %v, %v; want false", ok, err)
	}
}

func TestUseAfterCloseFails(t *testing.T) {
	database := setupDB(t)

	if err := database.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := database.Get([]byte("x")); err == nil {
		t.Fatalf("Get after Close succeeded, want error")
	}
	if err := database.Close(); err == nil {
		t.Fatalf("double Close succeeded, want error")
	}
}

func TestReopenAfterClose(t *testing.T) {
	os.Remove(dbTestPath)
	defer os.Remove(dbTestPath)

	database, err := CreateDefault(dbTestPath)
	if err != nil {
		t.Fatalf("CreateDefault: %v", err)
	}
	if err := database.Put([]byte("persist"), []byte("me")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dbTestPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get([]byte("persist"))
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if !bytes.Equal(got, []byte("me")) {
		t.Fatalf("Get after reopen = %q, want %q", got, "me")
	}
	if reopened.Path() != dbTestPath {
		t.Fatalf("Path() = %q, want %q", reopened.Path(), dbTestPath)
	}
}

func TestStatsAndCheckConsistency(t *testing.T) {
	database := setupDB(t)

	for i := 0; i < 50; i++ {
		key := []byte(fmt.Sprintf("s%03d", i))
		if err := database.Put(key, key); err != nil {
			t.Fatalf("Put(%s) failed: %v", key, err)
		}
	}

	stats, err := database.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Keys != 50 {
		t.Fatalf("stats.Keys = %d, want 50", stats.Keys)
	}

	ok, err := database.CheckConsistency()
	if err != nil {
		t.Fatalf("CheckConsistency failed: %v", err)
	}
	if !ok {
		t.Fatalf("CheckConsistency returned false after 50 sequential inserts")
	}
}

func TestIteratorOrder(t *testing.T) {
	database := setupDB(t)

	keys := []string{"banana", "apple", "cherry"}
	for _, k := range keys {
		if err := database.Put([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	it, err := database.Iterator()
	if err != nil {
		t.Fatalf("Iterator failed: %v", err)
	}
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	want := []string{"apple", "banana", "cherry"}
	if len(got) != len(want) {
		t.Fatalf("iterator returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("iterator returned %v, want %v", got, want)
		}
	}
}
