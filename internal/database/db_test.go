package database

import (
	"testing"

	"github.com/yiyuan-he/agentic-enablement-eval/internal/config"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  config.DBConfig
		want string
	}{
		{
			name: "with password",
			cfg:  config.DBConfig{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "buckets"},
			want: "app:pw@tcp(db:3306)/buckets?charset=utf8mb4&parseTime=true&loc=UTC",
		},
		{
			name: "without password",
			cfg:  config.DBConfig{User: "root", Host: "127.0.0.1", Port: "3307", Name: "history"},
			want: "root@tcp(127.0.0.1:3307)/history?charset=utf8mb4&parseTime=true&loc=UTC",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := DSN(tc.cfg); got != tc.want {
				t.Fatalf("DSN=%q, want %q", got, tc.want)
			}
		})
	}
}
