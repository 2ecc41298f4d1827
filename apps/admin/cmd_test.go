package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/user"
	"github.com/trezcool/tutoring/storage/database"
	inmemdb "github.com/trezcool/tutoring/storage/database/inmem"
	testutil "github.com/trezcool/tutoring/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()

	// set up DB & repos
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())

	// start CLI
	return &commandLine{usrRepo: usrRepo}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(t *testing.T, pwd string) {
	defaultFunc := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = defaultFunc })
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	defaultFunc := database.MigrateFunc
	t.Cleanup(func() { database.MigrateFunc = defaultFunc })
	database.MigrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "coupons", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, usrRepo, "Guest", "guest@test.cd", "", user.RoleGuestParent)

	type extra struct {
		pwd  string
		role string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "email but no name", args: []string{"adduser", "-email", "admin@test.cd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.cd"}, wantErr: errHelp},
		{
			name: "invalid role", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.cd", "-role", "lol"},
			extra: extra{pwd: "Adm1n-Pass!"}, wantErrStr: `invalid role "lol"`,
		},
		{
			name: "weak password", args: []string{"adduser", "-name", "Admin", "-email", "admin@test.cd"},
			extra: extra{pwd: "short"}, wantErrStr: "password: password must contain at least 8 characters",
		},
		{
			name: "new admin", args: []string{"adduser", "-name", "Admin", "-email", "Admin@Test.cd"},
			extra: extra{pwd: "Adm1n-Pass!", role: user.RoleAdmin},
		},
		{
			name: "promote existing user", args: []string{"adduser", "-name", "Teacher", "-email", existing.Email, "-role", user.RoleTeacher},
			extra: extra{pwd: "T3acher-Pass!", role: user.RoleTeacher},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			ext, _ := tt.extra.(extra)
			mockPassword(t, ext.pwd)

			err := cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}

			usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: core.CleanString(args[5], true)})
			require.NoError(t, err)
			assert.Equal(t, ext.role, usr.Role)
			assert.True(t, usr.IsActive)
			assert.True(t, usr.TemporaryAt.IsZero())
			assert.NoError(t, usr.CheckPassword(ext.pwd))
		})
	}

	usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: existing.Email})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, usr.ID, "updated in place")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe@test.cd", "Old-Pa55word!", user.RoleParent)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, extra: "N3w-Pa55word!", wantErr: user.ErrNotFound},
		{
			name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, extra: "12345678",
			wantErrStr: "password: password cannot be entirely numeric",
		},
		{name: "reset", args: []string{"resetpassword", "-email", " AWE@test.cd"}, extra: "N3w-Pa55word!"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd, _ := tt.extra.(string)
			mockPassword(t, pwd)

			err := cli.run(args)
			tt.check(t, err)
			if err != nil {
				return
			}

			refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}
