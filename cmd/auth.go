package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/project-console/internal"
	"github.com/frahmantamala/project-console/internal/session"
)

var loginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the backend",
	Run: func(cmd *cobra.Command, args []string) {
		runLogin()
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the cached session",
	Run: func(cmd *cobra.Command, args []string) {
		runLogout()
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Run: func(cmd *cobra.Command, args []string) {
		runWhoami()
	},
}

func runLogin() {
	a, err := buildApp()
	if err != nil {
		fail(err)
	}

	email := loginEmail
	reader := bufio.NewReader(os.Stdin)
	if email == "" {
		fmt.Print("Email: ")
		line, _ := reader.ReadString('\n')
		email = strings.TrimSpace(line)
	}
	fmt.Print("Password: ")
	password, err := readPassword()
	fmt.Println()
	if err != nil {
		fail(err)
	}

	ctx := context.Background()
	if err := a.sessions.Login(ctx, session.LoginDTO{Email: email, Password: password}); err != nil {
		if internal.IsInactiveAccountError(err) {
			fail(errors.New("your account is inactive, please contact your administrator"))
		}
		fail(err)
	}

	u := a.sessions.CurrentUser()
	fmt.Printf("Signed in as %s (%s)\n", u.Name, u.Role.Name)
}

func runLogout() {
	a, err := buildApp()
	if err != nil {
		fail(err)
	}
	a.sessions.Logout(context.Background())
	fmt.Println("Signed out")
}

func runWhoami() {
	a, err := buildApp()
	if err != nil {
		fail(err)
	}
	a.sessions.Initialize(context.Background())

	snapshot := a.sessions.Snapshot()
	if !snapshot.IsAuthenticated {
		fail(errors.New("not signed in"))
	}

	u := snapshot.User
	fmt.Printf("User:        %s <%s>\n", u.Name, u.Email)
	fmt.Printf("Role:        %s\n", u.Role.Name)
	fmt.Printf("Permissions: %s\n", strings.Join(u.Permissions, ", "))
}

func readPassword() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
