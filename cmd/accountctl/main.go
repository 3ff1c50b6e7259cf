// Command accountctl creates a verified, active admin account directly in the
// configured store. It is how the first admin is made, since registering
// with the admin role through the API requires an admin caller.
//
// Usage:
//
//	accountctl -email admin@example.com -phone 0300 -username admin -name "Site Admin" [server config flags]
//
// The password is read from the terminal without echo.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/flagx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/api"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// adminFlags are the options of this command; everything else on the command
// line belongs to the server config.
type adminFlags struct {
	email    string
	phone    string
	username string
	name     string
}

func parseAdminFlags(args []string) (adminFlags, error) {
	args = flagx.FilterArgs(args, []string{"-email", "-phone", "-username", "-name"})

	var f adminFlags
	fs := flag.NewFlagSet("accountctl", flag.ContinueOnError)
	fs.StringVar(&f.email, "email", "", "admin email")
	fs.StringVar(&f.phone, "phone", "", "admin phone")
	fs.StringVar(&f.username, "username", "", "admin username")
	fs.StringVar(&f.name, "name", "", "admin full name")
	if err := fs.Parse(args); err != nil {
		return f, err
	}

	switch {
	case f.phone == "":
		return f, errors.New("-phone is required")
	case f.username == "":
		return f, errors.New("-username is required")
	case f.name == "":
		return f, errors.New("-name is required")
	}
	return f, nil
}

func promptPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if n := utf8.RuneCount(pw); n < api.MinPasswordLength || n > api.MaxPasswordLength {
		common.WipeByteArray(pw)
		return nil, fmt.Errorf("password must be %d to %d characters", api.MinPasswordLength, api.MaxPasswordLength)
	}
	return pw, nil
}

// createAdmin stores a verified, active admin with a fresh salt.
func createAdmin(ctx context.Context, m repomanager.RepositoryManager, f adminFlags, password []byte) (*models.Account, error) {
	repo, err := m.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage error: %w", err)
	}

	creds, err := auth.NewCredentials(string(password))
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username:      f.username,
		FullName:      f.name,
		Email:         f.email,
		Phone:         f.phone,
		PasswordHash:  creds.Hash,
		Salt:          creds.Salt,
		Role:          models.RoleAdmin,
		Verified:      true,
		AccountStatus: models.DefaultAccountStatus,
		Available:     true,
	}
	account.ApplyDefaults()

	return repo.Create(ctx, account)
}

func run(ctx context.Context, cfg *config.Config, args []string, w io.Writer) error {
	f, err := parseAdminFlags(args)
	if err != nil {
		return err
	}

	m, err := repomanager.New(cfg)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())

	password, err := promptPassword(w)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	account, err := createAdmin(ctx, m, f, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "admin %s created with id %s\n", account.Username, account.ID)
	return nil
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, config.LoadConfig(), os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}
}
