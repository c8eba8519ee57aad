package cache

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// NetworksKey identifies the network listing of one account and region.
	NetworksKey(accountID, region string) string

	// ArtifactKey identifies a rendered output of a model.
	ArtifactKey(modelHash string, opts ArtifactKeyOpts) string
}

// ArtifactKeyOpts are the render options that change an artifact's bytes.
type ArtifactKeyOpts struct {
	Format        string `json:"format"`
	StrictTargets bool   `json:"strict_targets,omitempty"`
	Detailed      bool   `json:"detailed,omitempty"`
	RankDir       string `json:"rank_dir,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// NetworksKey returns "networks:<accountID>:<region>".
func (DefaultKeyer) NetworksKey(accountID, region string) string {
	return "networks:" + accountID + ":" + region
}

// ArtifactKey hashes the model hash together with opts.
func (DefaultKeyer) ArtifactKey(modelHash string, opts ArtifactKeyOpts) string {
	return artifactKey(modelHash, opts)
}
