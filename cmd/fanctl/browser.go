package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// execBrowser opens URLs with the platform's default handler.
type execBrowser struct{}

func (execBrowser) command() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

func (b execBrowser) Available() error {
	name, _ := b.command()
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return errors.New("no graphical session")
	}
	return nil
}

func (b execBrowser) OpenURL(url string) error {
	name, args := b.command()
	cmd := exec.Command(name, append(args, url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
