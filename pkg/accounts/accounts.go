// Package accounts discovers the AWS accounts a user can inspect.
//
// Accounts are declared in the shared credentials file, one profile per
// section, with the account id in a comment after the section header:
//
//	[team_a] #111111111111
//	aws_access_key_id = ...
//
// Profile names must be word characters (letters, digits, underscore).
// Hyphenated profiles such as [team-a] and profiles without the id comment
// are not listed.
package accounts

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"

	errs "github.com/matzehuels/vpcmap/pkg/errors"
	"github.com/matzehuels/vpcmap/pkg/topology"
)

var headerPattern = regexp.MustCompile(`\[(\w+)\] #(\d+)`)

// DefaultCredentialsPath returns the SDK's shared credentials location,
// honoring AWS_SHARED_CREDENTIALS_FILE.
func DefaultCredentialsPath() string {
	if p := os.Getenv("AWS_SHARED_CREDENTIALS_FILE"); p != "" {
		return p
	}
	return config.DefaultSharedCredentialsFilename()
}

// Discover reads the credentials file at path and returns its annotated
// profiles in file order.
func Discover(path string) ([]topology.AccountScope, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "credentials file %s not found", path)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "open credentials file %s", path)
	}
	defer f.Close()

	accounts, err := Parse(f)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "read credentials file %s", path)
	}
	return accounts, nil
}

// Parse scans r line by line for annotated section headers.
func Parse(r io.Reader) ([]topology.AccountScope, error) {
	var out []topology.AccountScope
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := headerPattern.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		out = append(out, topology.AccountScope{Name: m[1], ID: m[2]})
	}
	return out, sc.Err()
}

// Filter selects accounts whose name contains a search term. Matching is a
// case-sensitive substring test. An account matching several terms is
// returned once per term, in account order.
func Filter(all []topology.AccountScope, terms []string) []topology.AccountScope {
	var out []topology.AccountScope
	for _, acc := range all {
		for _, term := range terms {
			if strings.Contains(acc.Name, term) {
				out = append(out, acc)
			}
		}
	}
	return out
}
