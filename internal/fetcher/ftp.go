// Package fetcher pulls WMS flat files from a remote FTP drop into a local
// inbox directory.
package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wms-ingest/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
	Retry   resilience.RetryConfig
	// DeleteAfter removes each remote file once it is safely on disk.
	DeleteAfter bool
}

// FTPFetcher mirrors matching files of a remote directory into a local one.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("ftp", "connect")
	}
	return &FTPFetcher{opts: opts}
}

// remote is a parsed ftp:// URL.
type remote struct {
	host     string
	dir      string
	user     string
	password string
}

// parseFTPURL extracts host (with port), directory and credentials. Without
// userinfo the login is anonymous.
func parseFTPURL(rawURL string) (remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return remote{}, eris.Wrap(err, "fetcher: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return remote{}, eris.Errorf("fetcher: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return remote{}, eris.New("fetcher: empty host in ftp url")
	}

	r := remote{host: u.Host, dir: u.Path, user: "anonymous", password: "anonymous@"}
	if _, _, splitErr := net.SplitHostPort(r.host); splitErr != nil {
		r.host = net.JoinHostPort(r.host, "21")
	}
	if r.dir == "" {
		r.dir = "/"
	}
	if u.User != nil {
		r.user = u.User.Username()
		r.password, _ = u.User.Password()
	}
	return r, nil
}

func (f *FTPFetcher) connect(ctx context.Context, r remote) (*ftp.ServerConn, error) {
	return resilience.DoVal(ctx, f.opts.Retry, func(ctx context.Context) (*ftp.ServerConn, error) {
		conn, err := ftp.Dial(r.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: ftp dial")
		}
		if err := conn.Login(r.user, r.password); err != nil {
			_ = conn.Quit()
			return nil, eris.Wrap(err, "fetcher: ftp login")
		}
		return conn, nil
	})
}

// Pull downloads every file in the remote directory whose name matches
// pattern into destDir and returns the local paths written. Files already
// present locally with the same size are skipped. Downloads land in a
// ".part" file that is renamed into place once complete.
func (f *FTPFetcher) Pull(ctx context.Context, remoteURL, pattern, destDir string) ([]string, error) {
	r, err := parseFTPURL(remoteURL)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		pattern = "*"
	}

	log := zap.L().With(zap.String("component", "fetcher"), zap.String("host", r.host), zap.String("dir", r.dir))

	conn, err := f.connect(ctx, r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	names, err := conn.NameList(r.dir)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: list %s", r.dir)
	}

	var pulled []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return pulled, err
		}

		base := path.Base(name)
		if ok, _ := filepath.Match(pattern, base); !ok {
			continue
		}
		remotePath := path.Join(r.dir, base)
		localPath := filepath.Join(destDir, base)

		size, err := conn.FileSize(remotePath)
		if err != nil {
			return pulled, eris.Wrapf(err, "fetcher: size %s", remotePath)
		}
		if fi, statErr := os.Stat(localPath); statErr == nil && fi.Size() == size {
			continue
		}

		n, err := download(conn, remotePath, localPath)
		if err != nil {
			return pulled, err
		}
		log.Info("pulled file", zap.String("file", base), zap.Int64("bytes", n))
		pulled = append(pulled, localPath)

		if f.opts.DeleteAfter {
			if err := conn.Delete(remotePath); err != nil {
				return pulled, eris.Wrapf(err, "fetcher: delete remote %s", remotePath)
			}
		}
	}
	return pulled, nil
}

func download(conn *ftp.ServerConn, remotePath, localPath string) (int64, error) {
	resp, err := conn.Retr(remotePath)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: retrieve %s", remotePath)
	}
	defer resp.Close() //nolint:errcheck

	tmp := localPath + ".part"
	file, err := os.Create(tmp) // #nosec G304 -- destination is the configured inbox
	if err != nil {
		return 0, eris.Wrap(err, "fetcher: create file")
	}

	n, err := io.Copy(file, resp)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return n, eris.Wrapf(err, "fetcher: write %s", localPath)
	}

	if err := os.Rename(tmp, localPath); err != nil {
		return n, eris.Wrapf(err, "fetcher: rename %s", tmp)
	}
	return n, nil
}
