package remote

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

var defaultPrivateKeyFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

// terminal is the interactive side of authentication: host key trust
// questions and password entry.
type terminal struct {
	in  *os.File
	out io.Writer
}

var stdTerminal = &terminal{in: os.Stdin, out: os.Stderr}

func (t *terminal) interactive() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

func (t *terminal) confirm(prompt string) (bool, error) {
	if !t.interactive() {
		return false, fmt.Errorf("cannot prompt for host key trust: stdin is not a terminal")
	}
	fmt.Fprint(t.out, prompt)
	answer, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("host key prompt failed: %w", err)
	}
	return isYes(answer), nil
}

func (t *terminal) secret(prompt string) (string, error) {
	if !t.interactive() {
		return "", fmt.Errorf("cannot prompt for SSH password: stdin is not a terminal")
	}
	fmt.Fprint(t.out, prompt)
	b, err := term.ReadPassword(int(t.in.Fd()))
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("password prompt failed: %w", err)
	}
	return string(b), nil
}

func isYes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes"
}

func parseSSHTarget(target string) (string, string, error) {
	if strings.TrimSpace(target) == "" {
		return "", "", fmt.Errorf("remote target is required")
	}

	user, host, ok := strings.Cut(target, "@")
	if !ok || user == "" || host == "" {
		return "", "", fmt.Errorf("invalid remote target %q: expected user@host", target)
	}

	return user, host, nil
}

func hostKeyCallback(host string, port int, batchMode bool) (ssh.HostKeyCallback, error) {
	knownHostsPath, err := ensureKnownHostsFile()
	if err != nil {
		return nil, err
	}

	verify, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return fmt.Errorf("host key verification failed: %w", err)
		}
		return resolveHostKey(stdTerminal, knownHostsPath, host, port, key, keyErr.Want, batchMode)
	}, nil
}

// resolveHostKey handles a key that known_hosts does not vouch for: an
// unknown host goes through trust on first use, a changed key must be
// replaced explicitly.
func resolveHostKey(t *terminal, knownHostsPath, host string, port int, key ssh.PublicKey, want []knownhosts.KnownKey, batchMode bool) error {
	address := knownHostAddress(host, port)
	presented := ssh.FingerprintSHA256(key)

	if len(want) == 0 {
		if batchMode {
			return fmt.Errorf("unknown host key for %s (%s); run ssh once to trust it or disable --ssh-batch", address, presented)
		}
		ok, err := t.confirm(fmt.Sprintf(
			"The authenticity of host '%s' can't be established.\n%s key fingerprint is %s.\nTrust this host and continue connecting (yes/no)? ",
			address, key.Type(), presented,
		))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("host key for %s was not trusted", address)
		}
		return addKnownHost(knownHostsPath, host, port, key)
	}

	expected := make([]string, 0, len(want))
	for _, w := range want {
		expected = append(expected, ssh.FingerprintSHA256(w.Key))
	}
	if batchMode {
		return fmt.Errorf("host key mismatch for %s: expected %s, presented %s",
			address, strings.Join(expected, ", "), presented)
	}
	ok, err := t.confirm(fmt.Sprintf(
		"WARNING: HOST KEY CHANGED for '%s'.\nExpected: %s\nPresented: %s\nReplace stored key and continue (yes/no)? ",
		address, strings.Join(expected, ", "), presented,
	))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("host key mismatch for %s", address)
	}
	return replaceKnownHost(knownHostsPath, host, port, key)
}

func ensureKnownHostsFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for known_hosts: %w", err)
	}

	sshDir := filepath.Join(home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create ~/.ssh directory: %w", err)
	}

	path := filepath.Join(sshDir, "known_hosts")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			return "", fmt.Errorf("cannot create known_hosts: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("cannot access known_hosts: %w", err)
	}

	return path, nil
}

func knownHostAddress(host string, port int) string {
	if port == 22 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

func knownHostCandidates(host string, port int) map[string]bool {
	candidates := map[string]bool{
		host:                               true,
		fmt.Sprintf("[%s]:%d", host, port): true,
	}
	if port == 22 {
		candidates[fmt.Sprintf("[%s]:22", host)] = true
	}
	return candidates
}

func addKnownHost(path, host string, port int, key ssh.PublicKey) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("cannot update known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownHostAddress(host, port)}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("cannot write known_hosts entry: %w", err)
	}
	return nil
}

func replaceKnownHost(path, host string, port int, key ssh.PublicKey) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read known_hosts: %w", err)
	}

	updated := removeKnownHostEntries(data, host, port)
	if len(updated) > 0 && updated[len(updated)-1] != '\n' {
		updated = append(updated, '\n')
	}
	updated = append(updated, knownhosts.Line([]string{knownHostAddress(host, port)}, key)...)
	updated = append(updated, '\n')

	if err := os.WriteFile(path, updated, 0o600); err != nil {
		return fmt.Errorf("cannot write known_hosts: %w", err)
	}
	return nil
}

// removeKnownHostEntries drops every line naming host at port, including
// marker lines.
func removeKnownHostEntries(data []byte, host string, port int) []byte {
	lines := strings.Split(string(data), "\n")
	keep := make([]string, 0, len(lines))
	candidates := knownHostCandidates(host, port)

	for _, line := range lines {
		if !knownHostLineMatches(line, candidates) {
			keep = append(keep, line)
		}
	}
	return []byte(strings.Join(keep, "\n"))
}

func knownHostLineMatches(line string, candidates map[string]bool) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return false
	}
	fields := strings.Fields(line)
	if strings.HasPrefix(fields[0], "@") {
		if len(fields) < 2 {
			return false
		}
		fields = fields[1:]
	}
	for _, h := range strings.Split(fields[0], ",") {
		if candidates[h] {
			return true
		}
	}
	return false
}

func buildAuthMethods(user, host string, batchMode bool) ([]ssh.AuthMethod, error) {
	methods := make([]ssh.AuthMethod, 0, 4)

	if m := agentAuthMethod(); m != nil {
		methods = append(methods, m)
	}

	if signers := loadKeySigners(defaultKeyPaths()); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if !batchMode {
		p := &passwordPrompter{term: stdTerminal, prompt: fmt.Sprintf("%s@%s's password: ", user, host)}
		methods = append(methods, ssh.PasswordCallback(p.password))
		methods = append(methods, ssh.KeyboardInteractive(p.keyboardInteractive))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth methods available (configure ssh-agent or private keys, or disable --ssh-batch)")
	}
	return methods, nil
}

func agentAuthMethod() ssh.AuthMethod {
	sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK"))
	if sock == "" {
		return nil
	}

	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return agent.NewClient(conn).Signers()
	})
}

func defaultKeyPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(defaultPrivateKeyFiles))
	for _, name := range defaultPrivateKeyFiles {
		paths = append(paths, filepath.Join(home, ".ssh", name))
	}
	return paths
}

// loadKeySigners parses the unencrypted private keys among paths. Missing,
// unreadable and passphrase-protected keys are skipped.
func loadKeySigners(paths []string) []ssh.Signer {
	signers := make([]ssh.Signer, 0, len(paths))
	for _, path := range paths {
		pem, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}

// passwordPrompter asks once and answers every later challenge from cache.
type passwordPrompter struct {
	term   *terminal
	prompt string

	mu     sync.Mutex
	cached *string
}

func (p *passwordPrompter) password() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil {
		return *p.cached, nil
	}
	pass, err := p.term.secret(p.prompt)
	if err != nil {
		return "", err
	}
	p.cached = &pass
	return pass, nil
}

func (p *passwordPrompter) keyboardInteractive(_ string, _ string, questions []string, echos []bool) ([]string, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	pass, err := p.password()
	if err != nil {
		return nil, err
	}

	answers := make([]string, len(questions))
	for i := range questions {
		if i < len(echos) && echos[i] {
			continue
		}
		answers[i] = pass
	}
	return answers, nil
}
