package gov

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mtlprog/snxdash/internal/domain"
)

// messageVersion is the hub message format version.
const messageVersion = "0.1.3"

// SignRequest is a message to sign and submit to a space.
type SignRequest struct {
	SpaceKey string
	Type     domain.SignatureType
	Payload  any
}

// Receipt identifies a submitted message.
type Receipt struct {
	IPFSHash string `json:"ipfsHash"`
}

// Signer signs and submits hub messages.
type Signer interface {
	Sign(ctx context.Context, req SignRequest) (Receipt, error)
}

// MessageSender posts a signed envelope to the hub.
type MessageSender interface {
	SendMessage(ctx context.Context, envelope any) (string, error)
}

type signedMessage struct {
	Version   string               `json:"version"`
	Timestamp string               `json:"timestamp"`
	Space     string               `json:"space"`
	Type      domain.SignatureType `json:"type"`
	Payload   any                  `json:"payload"`
}

type envelope struct {
	Address string `json:"address"`
	Msg     string `json:"msg"`
	Sig     string `json:"sig"`
}

// HubSigner signs messages with a local key using the Ethereum personal
// message scheme and submits them to the hub.
type HubSigner struct {
	sender  MessageSender
	key     *ecdsa.PrivateKey
	address string
	now     func() time.Time
}

// NewHubSigner creates a signer from a hex-encoded secp256k1 private key.
func NewHubSigner(sender MessageSender, hexKey string) (*HubSigner, error) {
	if sender == nil {
		panic("gov.NewHubSigner: sender is nil")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing signer key: %w", err)
	}
	return &HubSigner{
		sender:  sender,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
		now:     time.Now,
	}, nil
}

// Address returns the checksummed address of the signing key.
func (s *HubSigner) Address() string {
	return s.address
}

// Sign builds the hub message, signs it and submits it.
func (s *HubSigner) Sign(ctx context.Context, req SignRequest) (Receipt, error) {
	msg, err := json.Marshal(signedMessage{
		Version:   messageVersion,
		Timestamp: strconv.FormatInt(s.now().Unix(), 10),
		Space:     req.SpaceKey,
		Type:      req.Type,
		Payload:   req.Payload,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("encoding message: %w", err)
	}

	sig, err := crypto.Sign(accounts.TextHash(msg), s.key)
	if err != nil {
		return Receipt{}, fmt.Errorf("signing message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	hash, err := s.sender.SendMessage(ctx, envelope{
		Address: s.address,
		Msg:     string(msg),
		Sig:     hexutil.Encode(sig),
	})
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{IPFSHash: hash}, nil
}
