// Package hashid computes the workspace identity hash an editor derives
// from a folder's absolute path and filesystem creation token. The
// digest names the folder's directory under workspaceStorage, so it has
// to match the editor's own derivation byte for byte.
package hashid

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"wsmigrate/internal/wspath"
)

// ErrHashUnavailable means no hashing strategy could produce a digest.
// Callers must not proceed with a guessed hash.
var ErrHashUnavailable = errors.New("no usable workspace hash strategy")

// Strategy produces a workspace hash for an existing path. The ctime
// token is the platform identity value read from the filesystem; a
// strategy that stats the path itself may ignore it.
type Strategy interface {
	Name() string
	Hash(path string, ctime int64) (string, error)
}

// LocalStrategy reimplements the editor's current derivation:
// md5(normalizedPath + decimal ctime token), hex encoded.
type LocalStrategy struct{}

func (LocalStrategy) Name() string { return "local" }

func (LocalStrategy) Hash(path string, ctime int64) (string, error) {
	sum := md5.Sum([]byte(path + strconv.FormatInt(ctime, 10)))
	return hex.EncodeToString(sum[:]), nil
}

// nodeScript is the editor's own derivation, run under node for
// bit-exact parity across editor versions.
const nodeScript = `
const fs = require('fs');
const crypto = require('crypto');
let path = process.argv[1];
try {
    const stat = fs.statSync(path);
    let ctime;
    if (process.platform === 'linux') {
        ctime = stat.ino;
    } else if (process.platform === 'darwin') {
        ctime = stat.birthtime.getTime();
    } else if (process.platform === 'win32') {
        ctime = Math.floor(stat.birthtimeMs);
        path = path.toLowerCase();
    } else {
        ctime = stat.birthtime.getTime();
    }
    const hash = crypto.createHash('md5').update(path).update(String(ctime)).digest('hex');
    console.log(hash);
} catch (e) {
    console.error(e);
    process.exit(1);
}
`

// NodeStrategy delegates to the editor's runtime. It stats the path
// itself, so the passed ctime token is ignored.
type NodeStrategy struct {
	Bin string
}

func (NodeStrategy) Name() string { return "node" }

func (s NodeStrategy) Hash(path string, _ int64) (string, error) {
	out, err := exec.Command(s.Bin, "-e", nodeScript, path).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("running %s: %w: %s", s.Bin, err, bytes.TrimSpace(exitErr.Stderr))
		}
		return "", fmt.Errorf("running %s: %w", s.Bin, err)
	}
	digest := string(bytes.TrimSpace(out))
	if len(digest) != md5.Size*2 {
		return "", fmt.Errorf("unexpected digest %q from %s", digest, s.Bin)
	}
	return digest, nil
}

// Engine tries each strategy in order until one produces a digest.
type Engine struct {
	strategies []Strategy
}

// NewEngine builds an engine over an explicit strategy order.
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Probe builds the default engine for the host: the node delegate first
// when the interpreter is on PATH, the local reimplementation always
// last. The second return reports whether the native runtime was found.
func Probe(nodeBin string) (*Engine, bool) {
	if _, err := exec.LookPath(nodeBin); err == nil {
		return NewEngine(NodeStrategy{Bin: nodeBin}, LocalStrategy{}), true
	}
	return NewEngine(LocalStrategy{}), false
}

// HashPath computes the workspace hash for a path that already exists
// at its final location. The creation token is read from the live
// filesystem metadata, so copying a folder and then hashing it picks up
// whatever identity the copy was given.
func (e *Engine) HashPath(path string) (string, error) {
	norm, err := wspath.Normalize(path)
	if err != nil {
		return "", err
	}

	token, hashPath, err := fileToken(norm)
	if err != nil {
		return "", fmt.Errorf("reading file identity for %s: %w", norm, err)
	}

	var lastErr error
	for _, s := range e.strategies {
		digest, err := s.Hash(hashPath, token)
		if err == nil {
			return digest, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrHashUnavailable, lastErr)
	}
	return "", ErrHashUnavailable
}
