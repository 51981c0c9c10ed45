package store

import (
	"io/fs"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/scholarbridge/request-service/internal/domain"
)

func ptrString(value string) *string {
	return &value
}

func TestOptionalUserRef(t *testing.T) {
	tests := []struct {
		name  string
		id    *string
		model *string
		want  *domain.UserRef
	}{
		{name: "both nil", want: nil},
		{name: "model missing", id: ptrString("expert-1"), want: nil},
		{name: "empty id", id: ptrString(""), model: ptrString("Profile"), want: nil},
		{name: "present", id: ptrString("expert-1"), model: ptrString("Profile"), want: &domain.UserRef{ID: "expert-1", Model: domain.UserModelProfile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := optionalUserRef(tt.id, tt.model)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil || !got.Equal(*tt.want) {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNullableString(t *testing.T) {
	if got := nullableString("   "); got != nil {
		t.Fatalf("expected blank value to map to NULL, got %q", *got)
	}
	if got := nullableString(" papers/abc "); got == nil || *got != "papers/abc" {
		t.Fatalf("expected trimmed value, got %v", got)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, fallback, max, want int
	}{
		{limit: 0, fallback: 20, max: 100, want: 20},
		{limit: -5, fallback: 20, max: 100, want: 20},
		{limit: 35, fallback: 20, max: 100, want: 35},
		{limit: 500, fallback: 20, max: 100, want: 100},
	}

	for _, tt := range tests {
		if got := ClampLimit(tt.limit, tt.fallback, tt.max); got != tt.want {
			t.Fatalf("ClampLimit(%d, %d, %d) = %d, want %d", tt.limit, tt.fallback, tt.max, got, tt.want)
		}
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for _, entry := range entries {
		raw, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", entry.Name(), err)
		}
		content := string(raw)
		if !strings.Contains(content, "-- +goose Up") || !strings.Contains(content, "-- +goose Down") {
			t.Fatalf("%s must carry goose Up and Down annotations", entry.Name())
		}
	}
}

func TestTruncateErrorText(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		wantLen int
	}{
		{name: "short text unchanged", reason: "dial tcp: connection refused", wantLen: 28},
		{name: "ascii cut at limit", reason: strings.Repeat("x", 2500), wantLen: 2000},
		{name: "two-byte rune straddling limit", reason: strings.Repeat("x", 1999) + "é", wantLen: 1999},
		{name: "three-byte runes", reason: strings.Repeat("€", 700), wantLen: 1998},
		{name: "invalid bytes dropped", reason: "bad \xff\xfe bytes", wantLen: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateErrorText(tt.reason)
			if len(got) != tt.wantLen {
				t.Fatalf("expected %d bytes, got %d", tt.wantLen, len(got))
			}
			if !utf8.ValidString(got) {
				t.Fatalf("expected valid UTF-8, got %q", got)
			}
		})
	}
}

func TestGuardedStatements(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		clauses []string
	}{
		{
			name:    "debit never overdraws",
			sql:     debitCoinAccountSQL,
			clauses: []string{"SET balance = balance - $3", "AND balance >= $3", "RETURNING"},
		},
		{
			name: "confirm matches only unconfirmed approved requests",
			sql:  confirmUserRequestSQL,
			clauses: []string{
				"SET is_fulfilled = TRUE",
				"AND status = 'Approved'",
				"AND is_fulfilled = FALSE",
				"AND is_deleted = FALSE",
				"AND active_fulfillment_id IS NOT DISTINCT FROM $4",
			},
		},
		{
			name:    "reward insert keeps the first reward",
			sql:     insertPendingCoinRewardSQL,
			clauses: []string{"INSERT INTO coin_rewards", "ON CONFLICT DO NOTHING"},
		},
		{
			name:    "reward claim credits once",
			sql:     claimPendingCoinRewardSQL,
			clauses: []string{"SET status = 'credited'", "WHERE id = $1 AND status = 'pending'"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized := strings.Join(strings.Fields(tt.sql), " ")
			for _, clause := range tt.clauses {
				if !strings.Contains(normalized, clause) {
					t.Fatalf("expected %q in %s", clause, normalized)
				}
			}
		})
	}
}

func TestMigrations_OneRewardPerFulfillmentAndRequest(t *testing.T) {
	var schema strings.Builder
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	for _, entry := range entries {
		raw, err := fs.ReadFile(migrationsFS, "migrations/"+entry.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", entry.Name(), err)
		}
		up := strings.SplitN(string(raw), "-- +goose Down", 2)[0]
		schema.WriteString(strings.Join(strings.Fields(up), " "))
		schema.WriteString(" ")
	}

	for _, constraint := range []string{
		"coin_rewards_fulfillment_key UNIQUE (fulfillment_id)",
		"coin_rewards_user_request_key UNIQUE (user_request_id)",
		"CHECK (balance >= 0)",
	} {
		if !strings.Contains(schema.String(), constraint) {
			t.Fatalf("expected migrations to declare %q", constraint)
		}
	}
}
