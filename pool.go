package wabisabi

import (
	"github.com/go-errors/errors"
)

// Pool is the client's credential store for one round. Zero-valued and
// valuable credentials are kept apart because requests consume them
// differently: zero credentials pad presentations, valuable ones fund
// outputs. Every credential is single-use; taking it removes it.
type Pool struct {
	zero     []*Credential
	valuable []*Credential
	index    map[string]struct{}
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{index: make(map[string]struct{})}
}

// Add inserts credentials, rejecting duplicates by MAC fingerprint.
func (p *Pool) Add(credentials ...*Credential) error {
	for _, c := range credentials {
		fp, err := c.Fingerprint()
		if err != nil {
			return err
		}
		if _, dup := p.index[fp]; dup {
			return ErrCredentialToPresentDuplicated
		}
		p.index[fp] = struct{}{}
		if c.Amount == 0 && c.Vsize == 0 {
			p.zero = append(p.zero, c)
		} else {
			p.valuable = append(p.valuable, c)
		}
	}
	return nil
}

// TakeZero removes and returns n zero-valued credentials.
func (p *Pool) TakeZero(n int) ([]*Credential, error) {
	if len(p.zero) < n {
		return nil, errors.Errorf("pool has %v zero credentials, need %v", len(p.zero), n)
	}
	out := p.zero[:n]
	p.zero = p.zero[n:]
	p.forget(out)
	return out, nil
}

// TakeValuable removes and returns all valuable credentials.
func (p *Pool) TakeValuable() []*Credential {
	out := p.valuable
	p.valuable = nil
	p.forget(out)
	return out
}

// ZeroCount reports how many zero credentials are available.
func (p *Pool) ZeroCount() int {
	return len(p.zero)
}

func (p *Pool) forget(credentials []*Credential) {
	for _, c := range credentials {
		if fp, err := c.Fingerprint(); err == nil {
			delete(p.index, fp)
		}
	}
}
