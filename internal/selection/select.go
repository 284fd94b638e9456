// Package selection implements coin selection and change-output
// construction (C6): the drop-down algorithm for choosing which UTXOs
// fund a spend, and the log-triangular distribution used to draw
// plausible change-output values.
package selection

import (
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/account"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/cosmoserr"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/random"
	"github.com/Gigamonkey-BSV/cosmos-wallet/internal/txdb"
)

// Params tunes the drop-down selection algorithm.
type Params struct {
	// OptimalOutputsPerSpend is the number of change outputs the pipeline
	// aims to produce; it sets the "ideal" per-output value used to
	// weight which surviving UTXOs are worth removing.
	OptimalOutputsPerSpend uint32
	// MinChangeValue is the minimum amount, in satoshis, selection must
	// leave room for as change.
	MinChangeValue int64
	// MinChangeFraction and MaxChangeFraction bound the fraction of the
	// spent value that must come back as change. A value is drawn
	// uniformly from [MinChangeFraction, MaxChangeFraction] for each
	// selection call unless the two are equal.
	MinChangeFraction float64
	MaxChangeFraction float64
}

// Picked is one selected input: the outpoint plus the account entry
// describing how to redeem it.
type Picked struct {
	Outpoint txdb.Outpoint
	Entry    account.Entry
}

// Result is the outcome of a successful selection: the chosen inputs, in
// a randomly shuffled order, plus the total expected serialized size of
// their unlock scripts and their combined value.
type Result struct {
	Inputs             []Picked
	InputsExpectedSize uint64
	SpentValue         int64
}

type removable struct {
	weight float64
	out    txdb.Outpoint
}

// Select runs the drop-down algorithm: start with every entry in acc
// selected, then repeatedly remove one surviving UTXO until no further
// removal would still satisfy valueToSpend plus fees plus the
// change-fraction/change-value constraints. Each removal is a weighted
// random draw among every removable candidate (see reduce), so that
// repeated spends from the same account don't always produce the same
// subset.
func Select(acc *account.Account, valueToSpend int64, feeRate float64, p Params, r random.Source) (Result, error) {
	total := acc.Value()
	if total <= valueToSpend {
		return Result{}, cosmoserr.New(cosmoserr.InsufficientFunds, "account value does not exceed the requested spend value")
	}

	changeFraction := p.MinChangeFraction
	if p.MaxChangeFraction > p.MinChangeFraction {
		changeFraction = p.MinChangeFraction + r.Range01()*(p.MaxChangeFraction-p.MinChangeFraction)
	}

	selected := map[string]Picked{}
	var expectedSize uint64
	var spentValue int64
	for _, out := range acc.Outpoints() {
		e, _ := acc.Get(out)
		selected[string(out.Bytes())] = Picked{Outpoint: out, Entry: e}
		expectedSize += uint64(e.ExpectedScriptSize)
		spentValue += e.PrevoutValue
	}

	minChangeSatisfied := func(spent int64) bool {
		return spent > valueToSpend+p.MinChangeValue &&
			float64(spent) > float64(valueToSpend)*(changeFraction+1)
	}

	if minChangeSatisfied(spentValue) {
		reduce(selected, &expectedSize, &spentValue, valueToSpend, feeRate, float64(p.OptimalOutputsPerSpend), p.MinChangeValue, changeFraction, r)
	}

	spendValWithFee := valueToSpend + int64(feeRate*float64(expectedSize))
	if int64(spendValWithFee) > spentValue {
		return Result{}, cosmoserr.New(cosmoserr.UnsatisfiableChangeConstraints,
			"no subset of the account satisfies the requested change constraints")
	}

	picked := make([]Picked, 0, len(selected))
	for _, pk := range selected {
		picked = append(picked, pk)
	}
	shuffle(picked, r)

	return Result{Inputs: picked, InputsExpectedSize: expectedSize, SpentValue: spentValue}, nil
}

// reduce repeatedly removes the UTXO whose absence still leaves the
// remaining set able to satisfy valueToSpend, fees, and the change
// constraints, weighting removal candidates by how far their value is
// from the ideal per-output value and drawing among them at random.
func reduce(selected map[string]Picked, expectedSize *uint64, spentValue *int64, valueToSpend int64, feeRate, optimalOutputsPerSpend float64, minChangeValue int64, minChangeFraction float64, r random.Source) {
	for {
		var candidates []removable
		for key, pk := range selected {
			removedSize := *expectedSize - uint64(pk.Entry.ExpectedScriptSize)
			outputValue := float64(pk.Entry.PrevoutValue)

			removedSpentValue := float64(*spentValue) - outputValue
			removedValWithFee := float64(valueToSpend) + feeRate*float64(removedSize)

			if removedSpentValue <= removedValWithFee+float64(minChangeValue) ||
				removedSpentValue <= removedValWithFee*(minChangeFraction+1) {
				continue
			}

			optimalValuePerOutput := removedValWithFee / optimalOutputsPerSpend
			var weight float64
			if outputValue > optimalValuePerOutput {
				weight = outputValue / optimalValuePerOutput
			} else {
				weight = optimalValuePerOutput / outputValue
			}

			candidates = append(candidates, removable{weight: weight, out: mustParseKey(key)})
		}

		if len(candidates) == 0 {
			return
		}

		idx := selectIndexByWeight(candidates, r)
		remove := candidates[idx]
		key := string(remove.out.Bytes())
		pk := selected[key]
		*expectedSize -= uint64(pk.Entry.ExpectedScriptSize)
		*spentValue -= pk.Entry.PrevoutValue
		delete(selected, key)
	}
}

func mustParseKey(key string) txdb.Outpoint {
	out, ok := txdb.ParseOutpoint([]byte(key))
	if !ok {
		panic("selection: corrupt outpoint key")
	}
	return out
}

// selectIndexByWeight draws an index into candidates proportional to
// each candidate's weight.
func selectIndexByWeight(candidates []removable, r random.Source) int {
	var total float64
	for _, c := range candidates {
		total += c.weight
	}
	if total <= 0 {
		return 0
	}
	target := r.Range01() * total
	var cum float64
	for i, c := range candidates {
		cum += c.weight
		if target < cum {
			return i
		}
	}
	return len(candidates) - 1
}

// shuffle permutes picked in place using a Fisher-Yates draw from r.
func shuffle(picked []Picked, r random.Source) {
	for i := len(picked) - 1; i > 0; i-- {
		j := r.Uint32(uint32(i))
		picked[i], picked[j] = picked[j], picked[i]
	}
}
