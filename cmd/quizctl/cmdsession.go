package main

import (
	"context"
	"fmt"
	"os"

	"github.com/etraincon/learning-service/internal/apiclient"
)

// cmdLogin logs in with an email and password.
type cmdLogin struct {
	Args struct {
		Email    string `positional-arg-name:"email"`
		Password string `positional-arg-name:"password"`
	} `positional-args:"true" required:"true"`
}

// Execute satisfies the go-flags Commander interface.
func (c *cmdLogin) Execute(args []string) error {
	client, cookiePath, err := newClient()
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}

	user, err := client.Login(context.Background(), c.Args.Email, c.Args.Password)
	if err != nil {
		if apiclient.IsUnverified(err) {
			return fmt.Errorf("account %s is not verified yet; follow the link in the activation email", c.Args.Email)
		}
		return err
	}

	if err := apiclient.SaveCookies(client.Jar(), client.BaseURL(), cookiePath); err != nil {
		return fmt.Errorf("save cookies: %w", err)
	}
	if err := store.SaveUser(user); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s <%s>\n", user.Username, user.Email)
	return nil
}

// cmdLogout ends the session and forgets the local identity.
type cmdLogout struct{}

func (c *cmdLogout) Execute(args []string) error {
	client, cookiePath, err := newClient()
	if err != nil {
		return err
	}
	store, err := newStore()
	if err != nil {
		return err
	}

	if err := client.Logout(context.Background()); err != nil {
		return err
	}
	if err := os.Remove(cookiePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := store.ClearUser(); err != nil {
		return err
	}

	fmt.Println("Logged out")
	return nil
}

// cmdMe prints the user the server associates with the saved cookie.
type cmdMe struct{}

func (c *cmdMe) Execute(args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	user, err := client.Me(context.Background())
	if err != nil {
		return err
	}
	return printJSON(user)
}

// cmdProfile prints the profile envelope.
type cmdProfile struct{}

func (c *cmdProfile) Execute(args []string) error {
	client, _, err := newClient()
	if err != nil {
		return err
	}
	profile, err := client.Profile(context.Background())
	if err != nil {
		return err
	}
	return printJSON(profile)
}
