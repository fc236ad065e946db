package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/etraincon/learning-service/internal/apiclient"
	"github.com/etraincon/learning-service/internal/quizsession"
)

const (
	defaultHomeDirname = "quizctl"
	defaultHost        = "http://localhost:8080"
	cookiesFilename    = "cookies.json"
	stateDirname       = "state"
)

// config holds the options shared by every command.
type config struct {
	AppData string        `long:"appdata" description:"Path to application home directory"`
	Host    string        `long:"host" description:"learning-service base URL"`
	Timeout time.Duration `long:"timeout" default:"6m" description:"HTTP timeout; quiz generation can take minutes"`
}

var cfg = &config{}

type quizctl struct {
	Config *config `group:"Application Options"`

	Login    cmdLogin    `command:"login" description:"Log in and keep the session cookie"`
	Logout   cmdLogout   `command:"logout" description:"End the session"`
	Me       cmdMe       `command:"me" description:"Show the logged in user"`
	Profile  cmdProfile  `command:"profile" description:"Show the logged in user's profile"`
	Generate cmdGenerate `command:"generate" description:"Generate a quiz for a course and store it locally"`
	Take     cmdTake     `command:"take" description:"Take the stored quiz in the terminal"`
	Results  cmdResults  `command:"results" description:"Show (and optionally export) the last results once"`
}

func (c *config) homeDir() (string, error) {
	if c.AppData != "" {
		return c.AppData, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("no config directory: %w", err)
	}
	return filepath.Join(base, defaultHomeDirname), nil
}

func (c *config) host() string {
	if c.Host != "" {
		return c.Host
	}
	if h := os.Getenv("QUIZCTL_HOST"); h != "" {
		return h
	}
	return defaultHost
}

// newStore opens the local quiz state.
func newStore() (*quizsession.Store, error) {
	home, err := cfg.homeDir()
	if err != nil {
		return nil, err
	}
	backend, err := quizsession.NewFileBackend(filepath.Join(home, stateDirname))
	if err != nil {
		return nil, err
	}
	return quizsession.NewStore(backend), nil
}

// newClient returns an API client carrying the saved session cookie.
func newClient() (*apiclient.Client, string, error) {
	home, err := cfg.homeDir()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return nil, "", err
	}
	cookiePath := filepath.Join(home, cookiesFilename)

	c, err := apiclient.New(cfg.host(), nil, cfg.Timeout)
	if err != nil {
		return nil, "", err
	}
	jar, err := apiclient.LoadCookies(c.BaseURL(), cookiePath)
	if err != nil {
		return nil, "", fmt.Errorf("load cookies: %w", err)
	}
	c, err = apiclient.New(cfg.host(), jar, cfg.Timeout)
	if err != nil {
		return nil, "", err
	}
	return c, cookiePath, nil
}

func _main() error {
	parser := flags.NewParser(&quizctl{Config: cfg}, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		// go-flags already printed the error.
		os.Exit(1)
	}
	return nil
}

func main() {
	if err := _main(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
