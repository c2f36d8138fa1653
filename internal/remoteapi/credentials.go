package remoteapi

import (
	"bufio"
	"os"
	"os/exec"
	"strings"

	"github.com/tsilvers/newsdesk/internal/ierr"
)

// Credentials is a resolved user/password pair.
type Credentials struct {
	User     string
	Password string
}

// CredentialSource describes the config-level inputs ResolveCredentials
// tries, in order: a configured password, a password file, or a password
// command. When none yield a password, ErrAuth is returned so the caller
// can fall back to an interactive prompt (the caller's responsibility,
// not this package's).
type CredentialSource struct {
	User            string
	Password        string
	PasswordFile    string
	PasswordCommand string
}

// Resolve tries, in order: configured user+password, a password file
// (first line), a password command (first line of stdout). Returns
// ierr.KindAuth if none resolve.
func Resolve(src CredentialSource) (Credentials, error) {
	if src.Password != "" {
		return Credentials{User: src.User, Password: src.Password}, nil
	}

	if src.PasswordFile != "" {
		pw, err := firstLineOfFile(src.PasswordFile)
		if err != nil {
			return Credentials{}, ierr.New(ierr.KindAuth, "reading password file").WithCause(err)
		}
		if pw != "" {
			return Credentials{User: src.User, Password: pw}, nil
		}
	}

	if src.PasswordCommand != "" {
		pw, err := firstLineOfCommand(src.PasswordCommand)
		if err != nil {
			return Credentials{}, ierr.New(ierr.KindAuth, "running password command").WithCause(err)
		}
		if pw != "" {
			return Credentials{User: src.User, Password: pw}, nil
		}
	}

	return Credentials{}, ierr.New(ierr.KindAuth, "no credential source resolved; interactive prompt required")
}

func firstLineOfFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r\n"), nil
	}
	return "", scanner.Err()
}

func firstLineOfCommand(cmd string) (string, error) {
	out, err := exec.Command("/bin/sh", "-c", cmd).Output()
	if err != nil {
		return "", err
	}
	line := strings.SplitN(string(out), "\n", 2)[0]
	return strings.TrimRight(line, "\r"), nil
}
