package network

import (
	"context"
	"errors"
)

// errNotStubbed is returned by MockBlockchainService methods whose function
// field is nil.
var errNotStubbed = errors.New("network: mock method not stubbed")

// MockBlockchainService is a BlockchainService whose methods delegate to
// function fields. Calling a method with a nil field returns an error.
type MockBlockchainService struct {
	ListUnspentFn        func(ctx context.Context, address string) ([]*UTXO, error)
	GetUTXOFn            func(ctx context.Context, txid string, vout uint32) (*UTXO, error)
	BroadcastTxFn        func(ctx context.Context, rawTxHex string) (string, error)
	GetTxStatusFn        func(ctx context.Context, txid string) (*TxStatus, error)
	GetBestBlockHeightFn func(ctx context.Context) (uint64, error)
	ImportAddressFn      func(ctx context.Context, address string, rescan bool) error
}

var _ BlockchainService = (*MockBlockchainService)(nil)

// ListUnspent implements FundingSource.
func (m *MockBlockchainService) ListUnspent(ctx context.Context, address string) ([]*UTXO, error) {
	if m.ListUnspentFn == nil {
		return nil, errNotStubbed
	}
	return m.ListUnspentFn(ctx, address)
}

// BroadcastTx implements FundingSource.
func (m *MockBlockchainService) BroadcastTx(ctx context.Context, rawTxHex string) (string, error) {
	if m.BroadcastTxFn == nil {
		return "", errNotStubbed
	}
	return m.BroadcastTxFn(ctx, rawTxHex)
}

func (m *MockBlockchainService) GetUTXO(ctx context.Context, txid string, vout uint32) (*UTXO, error) {
	if m.GetUTXOFn == nil {
		return nil, errNotStubbed
	}
	return m.GetUTXOFn(ctx, txid, vout)
}

func (m *MockBlockchainService) GetTxStatus(ctx context.Context, txid string) (*TxStatus, error) {
	if m.GetTxStatusFn == nil {
		return nil, errNotStubbed
	}
	return m.GetTxStatusFn(ctx, txid)
}

func (m *MockBlockchainService) GetBestBlockHeight(ctx context.Context) (uint64, error) {
	if m.GetBestBlockHeightFn == nil {
		return 0, errNotStubbed
	}
	return m.GetBestBlockHeightFn(ctx)
}

func (m *MockBlockchainService) ImportAddress(ctx context.Context, address string, rescan bool) error {
	if m.ImportAddressFn == nil {
		return errNotStubbed
	}
	return m.ImportAddressFn(ctx, address, rescan)
}
