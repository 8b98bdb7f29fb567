// Package params holds the round-level Parameters object (spec §3):
// proof variant, round nonce, key/message groups, and per-slot element
// count N. Parameters is immutable once a round starts except for N,
// which the slot lifecycle (package lifecycle) updates per slot per
// phase — so every engine instance must hold its own clone.
package params

import (
	"io/ioutil"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/henrycg/Dissent/group"
	"gopkg.in/yaml.v2"
)

// Parameters is the round-level configuration of spec §3. KeyGroup and
// MessageGroup coincide under the ElGamal variant; the pairing variant
// uses distinct group/field element types for them (§4.3).
type Parameters struct {
	Variant    group.Variant
	RoundNonce []byte

	KeyGroup     group.Group
	MessageGroup group.Group

	// N is the number of message-group elements a slot's ciphertext
	// spans this phase. Spec §9: this is a per-slot, per-phase quantity;
	// never mutate a Parameters shared across slots — Clone() first.
	N int

	// MaxElements bounds how large N may grow (spec §4.6: max_elms = 65536).
	MaxElements int

	// RetryK is the Koblitz-embedding retry budget (spec §4.1, default 256).
	RetryK int
}

// DefaultMaxElements is spec §4.6's max_elms.
const DefaultMaxElements = 65536

// Clone deep-copies Parameters so a single engine can hold its own N
// without perturbing any other slot's copy — spec §9's design note,
// grounded on the teacher's megaGraph_test.go DebugStream.DeepCopy,
// which uses the same jinzhu/copier.Copy pattern to give every stream
// instance an independent struct.
func (p *Parameters) Clone() *Parameters {
	clone := &Parameters{}
	_ = copier.Copy(clone, p)
	// copier.Copy does a shallow field copy; KeyGroup/MessageGroup are
	// interfaces pointing at stateless, read-only arithmetic engines
	// (spec §5: "group-arithmetic objects are read-only and freely
	// shareable"), so sharing the pointer is correct and intentional.
	clone.KeyGroup = p.KeyGroup
	clone.MessageGroup = p.MessageGroup
	clone.RoundNonce = append([]byte(nil), p.RoundNonce...)
	return clone
}

// yamlParameters is the on-disk shape LoadParameters reads, mirroring
// the teacher's conf/groups.go map[string]string group config style.
type yamlParameters struct {
	Variant     string `yaml:"variant"`
	RoundNonce  string `yaml:"roundNonce"`
	N           int    `yaml:"n"`
	MaxElements int    `yaml:"maxElements"`
	RetryK      int    `yaml:"retryK"`
}

// LoadParameters reads a YAML configuration file describing a round's
// static parameters. No CLI binding (no viper/cobra): spec §1/§6 keep
// the core free of a CLI surface, so this is a plain file-to-struct
// loader the outer application calls directly.
func LoadParameters(path string, keyGroup, msgGroup group.Group) (*Parameters, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read parameters file")
	}
	var y yamlParameters
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, errors.Wrap(err, "parse parameters yaml")
	}

	variant, err := parseVariant(y.Variant)
	if err != nil {
		return nil, err
	}

	maxElements := y.MaxElements
	if maxElements == 0 {
		maxElements = DefaultMaxElements
	}
	retryK := y.RetryK
	if retryK == 0 {
		retryK = group.DefaultRetryK
	}

	return &Parameters{
		Variant:      variant,
		RoundNonce:   []byte(y.RoundNonce),
		KeyGroup:     keyGroup,
		MessageGroup: msgGroup,
		N:            y.N,
		MaxElements:  maxElements,
		RetryK:       retryK,
	}, nil
}

func parseVariant(s string) (group.Variant, error) {
	switch s {
	case "elgamal", "":
		return group.ElGamal, nil
	case "pairing":
		return group.Pairing, nil
	case "hashing-generator":
		return group.HashingGenerator, nil
	case "xor-testing":
		return group.XorTesting, nil
	default:
		return 0, errors.Errorf("unknown proof variant %q", s)
	}
}
