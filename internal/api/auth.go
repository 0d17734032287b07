package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mmcdole/libdesk/internal/domain"
	"golang.org/x/term"
)

// Login exchanges credentials for a session token
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResult, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, domain.Validation("email and password are required")
	}
	return c.authenticate(ctx, "/auth/login", email, LoginRequest{Email: email, Password: creds.Password})
}

// Register creates a member account and signs it in
func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	email := strings.TrimSpace(reg.Email)
	if email == "" || reg.Password == "" {
		return nil, domain.Validation("email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, domain.Validation("email address is invalid")
	}
	return c.authenticate(ctx, "/auth/register", email, RegisterRequest{
		Email:    email,
		Password: reg.Password,
		FullName: strings.TrimSpace(reg.FullName),
		Phone:    strings.TrimSpace(reg.Phone),
	})
}

func (c *Client) authenticate(ctx context.Context, path, email string, body any) (*domain.AuthResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := json.Unmarshal(resp, &tok); err != nil {
		return nil, c.malformed(http.MethodPost, path, err)
	}
	if tok.AccessToken == "" {
		return nil, c.malformed(http.MethodPost, path, errors.New("response has no access token"))
	}

	c.logger.Info("authenticated", "email", email, "role", tok.Role)
	return &domain.AuthResult{
		Token: tok.AccessToken,
		Email: email,
		Role:  domain.ParseRole(tok.Role),
	}, nil
}

// Prompt reads credentials interactively. The password is read without
// echo when in is a terminal.
type Prompt struct {
	in  *os.File
	out io.Writer
}

// NewPrompt creates a prompt on stdin/stdout
func NewPrompt() *Prompt {
	return &Prompt{in: os.Stdin, out: os.Stdout}
}

// Credentials asks for email and password. email is used as-is when set.
func (p *Prompt) Credentials(email string) (domain.Credentials, error) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Library Sign In")
	fmt.Fprintln(p.out, "━━━━━━━━━━━━━━━")

	reader := bufio.NewReader(p.in)
	if email == "" {
		var err error
		if email, err = p.line(reader, "Email: "); err != nil {
			return domain.Credentials{}, err
		}
	}

	password, err := p.password(reader)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Email: email, Password: password}, nil
}

// Registration asks for the signup fields not already given
func (p *Prompt) Registration(reg domain.Registration) (domain.Registration, error) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Create Member Account")
	fmt.Fprintln(p.out, "━━━━━━━━━━━━━━━━━━━━━")

	reader := bufio.NewReader(p.in)
	var err error
	if reg.FullName == "" {
		if reg.FullName, err = p.line(reader, "Full name: "); err != nil {
			return reg, err
		}
	}
	if reg.Email == "" {
		if reg.Email, err = p.line(reader, "Email: "); err != nil {
			return reg, err
		}
	}
	if reg.Phone == "" {
		if reg.Phone, err = p.line(reader, "Phone (optional): "); err != nil {
			return reg, err
		}
	}
	if reg.Password == "" {
		if reg.Password, err = p.password(reader); err != nil {
			return reg, err
		}
	}
	return reg, nil
}

func (p *Prompt) line(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(s), nil
}

func (p *Prompt) password(reader *bufio.Reader) (string, error) {
	fd := int(p.in.Fd())
	if !term.IsTerminal(fd) {
		return p.line(reader, "Password: ")
	}

	fmt.Fprint(p.out, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(p.out) // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
