package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// LoginAction authenticates and stores the session for later commands.
func LoginAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	password := cmd.String("password")
	if password == "" {
		password = os.Getenv("FOODVIZ_PASSWORD")
	}
	s, err := app.Client.Login(ctx, cmd.String("username"), password)
	if err != nil {
		return describe(err, "login")
	}
	fmt.Printf("logged in as %s (%s)\n", s.User.Username, roleOf(s.User.IsAdmin()))
	return nil
}

// LogoutAction forgets the stored session.
func LogoutAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	if err := app.Client.Logout(ctx); err != nil {
		return describe(err, "logout")
	}
	fmt.Println("logged out")
	return nil
}

// WhoamiAction prints the stored operator.
func WhoamiAction(ctx context.Context, cmd *cli.Command) error {
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	s, err := app.Sessions.Load(ctx)
	if err != nil {
		return err
	}
	if !s.Valid() {
		return fmt.Errorf("not logged in")
	}
	fmt.Printf("%s <%s> %s, since %s\n", s.User.Username, s.User.Email, roleOf(s.User.IsAdmin()), s.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}

func roleOf(admin bool) string {
	if admin {
		return "admin"
	}
	return "user"
}
