package domain

import "strconv"

// Network identifies an EVM chain.
type Network struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Key returns the network id as used in query keys.
func (n Network) Key() string {
	return strconv.FormatInt(n.ID, 10)
}

// Session carries the caller's wallet and application state into data queries.
type Session struct {
	WalletAddress string
	Network       Network
	AppReady      bool
}

// IsWalletConnected reports whether a wallet address is present.
func (s Session) IsWalletConnected() bool {
	return s.WalletAddress != ""
}
