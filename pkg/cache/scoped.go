package cache

// ScopedKeyer prefixes every key of an inner [Keyer]. The CLI builds one
// from the `prefix` setting of the [cache] config section, so listings
// fetched with different credentials files can share one cache directory or
// Redis database without colliding.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or a [DefaultKeyer] when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) NetworksKey(accountID, region string) string {
	return k.prefix + k.inner.NetworksKey(accountID, region)
}

func (k *ScopedKeyer) ArtifactKey(modelHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(modelHash, opts)
}
