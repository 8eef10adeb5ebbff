package storebackends

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"fileconv/logger"
	"fileconv/storage"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPOptions holds connection settings. PrivateKey may be base64 or raw PEM
// and wins over Password when both are set.
type SFTPOptions struct {
	Host       string
	Port       string
	User       string
	Password   string
	PrivateKey string
	Root       string
}

// SFTP stores objects as files below Root on a remote server. Metadata lives
// in sidecar files under Root/.meta.
type SFTP struct {
	mu     sync.Mutex
	ssh    *ssh.Client
	client *sftp.Client
	root   string
}

func NewSFTP(ctx context.Context, opts SFTPOptions) (*SFTP, error) {
	if opts.Port == "" {
		opts.Port = "22"
	}
	if opts.Root == "" {
		opts.Root = "/"
	}
	if opts.Host == "" || opts.User == "" {
		return nil, fmt.Errorf("sftp backend requires host and user")
	}

	var auths []ssh.AuthMethod
	if opts.PrivateKey != "" {
		// try to decode as base64, fall back to raw
		keyBytes, err := base64.StdEncoding.DecodeString(opts.PrivateKey)
		if err != nil {
			keyBytes = []byte(opts.PrivateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	} else if opts.Password != "" {
		auths = append(auths, ssh.Password(opts.Password))
	} else {
		return nil, fmt.Errorf("no auth method provided; set SFTP_PASSWORD or SFTP_PRIVATE_KEY")
	}

	config := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auths,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(opts.Host, opts.Port)

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	sshClient := ssh.NewClient(clientConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("create sftp client: %w", err)
	}

	logger.Infof("SFTP backend connected to %s (root %s)", addr, opts.Root)
	return &SFTP{ssh: sshClient, client: sftpClient, root: opts.Root}, nil
}

func (b *SFTP) remotePath(key string) string {
	return path.Join(b.root, key)
}

func (b *SFTP) writeFile(p string, data []byte) error {
	if err := b.client.MkdirAll(path.Dir(p)); err != nil {
		return fmt.Errorf("ensure remote dir %s: %w", path.Dir(p), err)
	}
	f, err := b.client.Create(p)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write remote file %s: %w", p, err)
	}
	return f.Close()
}

func (b *SFTP) readFile(p string) ([]byte, error) {
	f, err := b.client.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (b *SFTP) Put(ctx context.Context, key string, data []byte, meta map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := encodeMeta(meta)
	if err != nil {
		return err
	}
	if err := b.writeFile(b.remotePath(sidecarKey(key)), raw); err != nil {
		return err
	}
	return b.writeFile(b.remotePath(key), data)
}

func (b *SFTP) Head(ctx context.Context, key string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.client.Stat(b.remotePath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	raw, err := b.readFile(b.remotePath(sidecarKey(key)))
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeMeta(raw)
}

func (b *SFTP) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readFile(b.remotePath(key))
}

func (b *SFTP) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range []string{b.remotePath(key), b.remotePath(sidecarKey(key))} {
		if err := b.client.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func (b *SFTP) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var objs []storage.ObjectInfo
	walker := b.client.Walk(b.remotePath(listDir(prefix)))
	for walker.Step() {
		if err := walker.Err(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		info := walker.Stat()
		if info.IsDir() {
			continue
		}
		key := strings.TrimPrefix(strings.TrimPrefix(walker.Path(), b.root), "/")
		if !strings.HasPrefix(key, prefix) || strings.HasPrefix(key, sidecarDir+"/") {
			continue
		}
		objs = append(objs, storage.ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
	}
	sortObjects(objs)
	return objs, nil
}

func (b *SFTP) Close() error {
	b.client.Close()
	return b.ssh.Close()
}
