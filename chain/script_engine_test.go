package chain

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/doginals-go/tx"
)

// engineFlags are the script checks a relaying node applies to a
// pre-segwit spend.
const engineFlags = txscript.ScriptBip16 |
	txscript.ScriptVerifyStrictEncoding |
	txscript.ScriptVerifyDERSignatures |
	txscript.ScriptVerifyLowS |
	txscript.ScriptVerifySigPushOnly |
	txscript.ScriptVerifyCleanStack

type prevout struct {
	lock   []byte // previous locking script
	code   []byte // script code the signature commits to
	amount int64
}

// specPrevouts lists what each input of spec spends, in input order.
func specPrevouts(t *testing.T, spec *TxSpec) []prevout {
	t.Helper()
	var out []prevout
	if spec.Prev != nil {
		p2sh, err := tx.P2SHLock(spec.Prev.Redeem)
		require.NoError(t, err)
		out = append(out, prevout{lock: []byte(*p2sh), code: spec.Prev.Redeem, amount: int64(spec.Prev.Value)})
	}
	for _, f := range spec.Funding {
		out = append(out, prevout{lock: f.UTXO.ScriptPubKey, code: f.UTXO.ScriptPubKey, amount: int64(f.UTXO.Amount)})
	}
	return out
}

func decodeWire(t *testing.T, raw []byte) *wire.MsgTx {
	t.Helper()
	msg := wire.NewMsgTx(wire.TxVersion)
	require.NoError(t, msg.Deserialize(bytes.NewReader(raw)))
	return msg
}

func TestBuild_ScriptEngineAcceptsEveryInput(t *testing.T) {
	w := newTestWallet(t)
	plan, signed := planAndBuild(t, w, 3000, w.utxos(10*coin))

	for i, s := range signed {
		msg := decodeWire(t, s.Raw)
		assert.Equal(t, s.TxID, msg.TxHash().String())

		prevs := specPrevouts(t, plan.Txs[i])
		require.Len(t, msg.TxIn, len(prevs))
		for idx, p := range prevs {
			fetcher := txscript.NewCannedPrevOutputFetcher(p.lock, p.amount)
			vm, err := txscript.NewEngine(p.lock, msg, idx, engineFlags, nil, nil, p.amount, fetcher)
			require.NoError(t, err, "tx %d input %d", i, idx)
			assert.NoError(t, vm.Execute(), "tx %d input %d", i, idx)
		}
	}
}

func TestBuild_ScriptEngineRejectsTamperedTx(t *testing.T) {
	w := newTestWallet(t)
	plan, signed := planAndBuild(t, w, 3000, w.utxos(10*coin))

	msg := decodeWire(t, signed[1].Raw)
	msg.TxOut[len(msg.TxOut)-1].Value--

	for idx, p := range specPrevouts(t, plan.Txs[1]) {
		fetcher := txscript.NewCannedPrevOutputFetcher(p.lock, p.amount)
		vm, err := txscript.NewEngine(p.lock, msg, idx, engineFlags, nil, nil, p.amount, fetcher)
		require.NoError(t, err)
		assert.Error(t, vm.Execute(), "input %d accepted a modified transaction", idx)
	}
}

func TestLegacySignatureHash_MatchesScriptEngine(t *testing.T) {
	w := newTestWallet(t)
	plan, signed := planAndBuild(t, w, 3000, w.utxos(4*coin, 4*coin, 4*coin))

	for i, s := range signed {
		msg := decodeWire(t, s.Raw)
		for idx, p := range specPrevouts(t, plan.Txs[i]) {
			want, err := txscript.CalcSignatureHash(p.code, txscript.SigHashAll, msg, idx)
			require.NoError(t, err)
			got, err := tx.LegacySignatureHash(s.Tx, idx, p.code)
			require.NoError(t, err)
			assert.Equal(t, want, got, "tx %d input %d", i, idx)
		}
	}
}

// The reveal output carries the final batch after the recipient's P2PKH,
// which no relay template accepts; the anchors are plain P2SH.
func TestBuild_OutputClasses(t *testing.T) {
	w := newTestWallet(t)
	_, signed := planAndBuild(t, w, 3000, w.utxos(10*coin))

	last := decodeWire(t, signed[len(signed)-1].Raw)
	assert.Equal(t, txscript.NonStandardTy, txscript.GetScriptClass(last.TxOut[0].PkScript))
	for _, s := range signed[:len(signed)-1] {
		msg := decodeWire(t, s.Raw)
		assert.Equal(t, txscript.ScriptHashTy, txscript.GetScriptClass(msg.TxOut[0].PkScript))
	}
}
