package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	solanasvc "github.com/brojonat/mintctl/service/solana"
	bin "github.com/gagliardetto/binary"
	token_metadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the Metaplex token metadata program.
var ProgramID = token_metadata.ProgramID

// Instruction discriminator of CreateMetadataAccountV3.
const instructionCreateMetadataAccountV3 uint8 = 33

// FindAddress derives the metadata account of mint.
func FindAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), ProgramID[:], mint[:]},
		ProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, solanasvc.ProtocolError("update_metadata", mint.String(),
			fmt.Errorf("failed to derive metadata address: %w", err))
	}
	return addr, nil
}

// CreateParams names the accounts of a CreateMetadataAccountV3 instruction.
type CreateParams struct {
	Mint            solana.PublicKey
	MintAuthority   solana.PublicKey
	Payer           solana.PublicKey
	UpdateAuthority solana.PublicKey
	Data            Data
}

// NewCreateInstruction builds a CreateMetadataAccountV3 instruction with
// accounts in program order: metadata, mint, mint authority, payer,
// update authority, system program, rent sysvar.
func NewCreateInstruction(p CreateParams) (solana.Instruction, solana.PublicKey, error) {
	if err := p.Data.Validate(); err != nil {
		return nil, solana.PublicKey{}, err
	}
	metadataAddr, err := FindAddress(p.Mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	data, err := encodeCreateV3(p.Data, p.UpdateAuthority)
	if err != nil {
		return nil, solana.PublicKey{}, solanasvc.ProtocolError("update_metadata", p.Mint.String(), err)
	}

	accounts := solana.AccountMetaSlice{
		solana.Meta(metadataAddr).WRITE(),
		solana.Meta(p.Mint),
		solana.Meta(p.MintAuthority).SIGNER(),
		solana.Meta(p.Payer).WRITE().SIGNER(),
		solana.Meta(p.UpdateAuthority).SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(ProgramID, accounts, data), metadataAddr, nil
}

// borshWriter keeps the first encoding error so a layout reads top to bottom.
type borshWriter struct {
	enc *bin.Encoder
	err error
}

func (w *borshWriter) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *borshWriter) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.WriteUint16(v, binary.LittleEndian)
	}
}

func (w *borshWriter) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(v, binary.LittleEndian)
	}
}

func (w *borshWriter) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *borshWriter) raw(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *borshWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.raw([]byte(s))
}

func encodeCreateV3(d Data, updateAuthority solana.PublicKey) ([]byte, error) {
	var buf bytes.Buffer
	w := &borshWriter{enc: bin.NewBorshEncoder(&buf)}

	w.u8(instructionCreateMetadataAccountV3)

	// DataV2
	w.str(d.Name)
	w.str(d.Symbol)
	w.str(d.URI)
	w.u16(d.SellerFeeBasisPoints)
	if len(d.Creators) == 0 {
		w.u8(0)
	} else {
		w.u8(1)
		w.u32(uint32(len(d.Creators)))
		for _, c := range d.Creators {
			w.raw(c.Address[:])
			w.boolean(c.Address.Equals(updateAuthority))
			w.u8(c.Share)
		}
	}
	w.u8(0) // collection
	w.u8(0) // uses

	w.boolean(d.IsMutable)
	w.u8(0) // collection details

	if w.err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", w.err)
	}
	return buf.Bytes(), nil
}
