package metadata

import (
	"errors"
	"fmt"
	"os"

	solanasvc "github.com/brojonat/mintctl/service/solana"
	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// Limits enforced by the token metadata program.
const (
	MaxNameLength        = 32
	MaxSymbolLength      = 10
	MaxURILength         = 200
	MaxCreators          = 5
	MaxSellerFeeBasisPts = 10000
)

// Defaults applied when the caller supplies no payload.
const (
	DefaultName   = "cr1tikal"
	DefaultSymbol = "cr1tikal"
	DefaultURI    = "https://blue-controversial-marlin-879.mypinata.cloud/ipfs/QmePNpXMof22GkUxmXXRd8SDg67nxdNGwaAX8QC88Jm6V8"
)

// Creator is a royalty recipient. A creator is recorded as verified only
// when it is also the update authority signing the transaction.
type Creator struct {
	Address solana.PublicKey `json:"address"`
	Share   uint8            `json:"share"`
}

// Data is the metadata payload attached to a mint.
type Data struct {
	Name                 string    `json:"name"`
	Symbol               string    `json:"symbol"`
	URI                  string    `json:"uri"`
	SellerFeeBasisPoints uint16    `json:"seller_fee_basis_points"`
	Creators             []Creator `json:"creators,omitempty"`
	IsMutable            bool      `json:"is_mutable"`
}

// Default returns the payload used when none is supplied.
func Default() Data {
	return Data{
		Name:      DefaultName,
		Symbol:    DefaultSymbol,
		URI:       DefaultURI,
		IsMutable: true,
	}
}

// Validate checks the payload against the program's limits.
func (d Data) Validate() error {
	var errs []error

	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if len(d.Name) > MaxNameLength {
		errs = append(errs, fmt.Errorf("name is %d bytes, max %d", len(d.Name), MaxNameLength))
	}
	if len(d.Symbol) > MaxSymbolLength {
		errs = append(errs, fmt.Errorf("symbol is %d bytes, max %d", len(d.Symbol), MaxSymbolLength))
	}
	if len(d.URI) > MaxURILength {
		errs = append(errs, fmt.Errorf("uri is %d bytes, max %d", len(d.URI), MaxURILength))
	}
	if d.SellerFeeBasisPoints > MaxSellerFeeBasisPts {
		errs = append(errs, fmt.Errorf("seller fee %d basis points exceeds %d", d.SellerFeeBasisPoints, MaxSellerFeeBasisPts))
	}
	if len(d.Creators) > MaxCreators {
		errs = append(errs, fmt.Errorf("%d creators given, max %d", len(d.Creators), MaxCreators))
	}
	if len(d.Creators) > 0 {
		total := 0
		seen := make(map[solana.PublicKey]bool, len(d.Creators))
		for _, c := range d.Creators {
			total += int(c.Share)
			if seen[c.Address] {
				errs = append(errs, fmt.Errorf("duplicate creator %s", c.Address))
			}
			seen[c.Address] = true
		}
		if total != 100 {
			errs = append(errs, fmt.Errorf("creator shares sum to %d, must be 100", total))
		}
	}

	if len(errs) > 0 {
		return solanasvc.ProtocolError("update_metadata", "", fmt.Errorf("invalid metadata: %w", errors.Join(errs...)))
	}
	return nil
}

// fileData is the on-disk form of a payload.
type fileData struct {
	Name                 string        `yaml:"name"`
	Symbol               string        `yaml:"symbol"`
	URI                  string        `yaml:"uri"`
	SellerFeeBasisPoints uint16        `yaml:"seller_fee_basis_points"`
	IsMutable            *bool         `yaml:"is_mutable"`
	Creators             []fileCreator `yaml:"creators"`
}

type fileCreator struct {
	Address string `yaml:"address"`
	Share   uint8  `yaml:"share"`
}

// LoadFile reads a YAML payload. Fields the file omits keep their defaults.
//
//	name: cr1tikal
//	symbol: CR1T
//	uri: https://example.com/token.json
//	seller_fee_basis_points: 250
//	is_mutable: false
//	creators:
//	  - address: 9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM
//	    share: 100
func LoadFile(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, solanasvc.ConfigError("failed to read metadata file %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML payload on top of the defaults.
func Parse(raw []byte) (Data, error) {
	var f fileData
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Data{}, solanasvc.ConfigError("failed to parse metadata: %w", err)
	}

	d := Default()
	if f.Name != "" {
		d.Name = f.Name
	}
	if f.Symbol != "" {
		d.Symbol = f.Symbol
	}
	if f.URI != "" {
		d.URI = f.URI
	}
	d.SellerFeeBasisPoints = f.SellerFeeBasisPoints
	if f.IsMutable != nil {
		d.IsMutable = *f.IsMutable
	}
	for i, c := range f.Creators {
		addr, err := solanasvc.ParsePublicKey(fmt.Sprintf("creators[%d].address", i), c.Address)
		if err != nil {
			return Data{}, err
		}
		d.Creators = append(d.Creators, Creator{Address: addr, Share: c.Share})
	}
	return d, nil
}
