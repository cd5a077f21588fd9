package sqlstore

import "testing"

func TestRebind(t *testing.T) {
	query := "SELECT id FROM tasks WHERE owner_id = ? AND completed = ? LIMIT ?"

	if got := dialectSQLite.rebind(query); got != query {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}

	want := "SELECT id FROM tasks WHERE owner_id = $1 AND completed = $2 LIMIT $3"
	if got := dialectPostgres.rebind(query); got != want {
		t.Fatalf("postgres rebind:\n got  %q\n want %q", got, want)
	}
}
