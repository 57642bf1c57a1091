package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/coolcode/alith/contracts"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
)

var eventABIs = []*abi.ABI{
	&contracts.DataRegistry,
	&contracts.VerifiedComputing,
	&contracts.Settlement,
}

// decodeLogs turns receipt logs into events. Logs of unknown events keep
// their emitter and first topic.
func decodeLogs(logs []*types.Log) []sharedtypes.Event {
	events := make([]sharedtypes.Event, 0, len(logs))
	for _, lg := range logs {
		events = append(events, decodeLog(lg))
	}
	return events
}

func decodeLog(lg *types.Log) sharedtypes.Event {
	contract := sharedtypes.NewAttribute("contract", lg.Address.Hex())
	if len(lg.Topics) == 0 {
		return sharedtypes.NewEvent("log", contract)
	}
	for _, parsed := range eventABIs {
		ev, err := parsed.EventByID(lg.Topics[0])
		if err != nil {
			continue
		}
		values := make(map[string]interface{}, len(ev.Inputs))
		if err := ev.Inputs.NonIndexed().UnpackIntoMap(values, lg.Data); err != nil {
			break
		}
		var indexed abi.Arguments
		for _, in := range ev.Inputs {
			if in.Indexed {
				indexed = append(indexed, in)
			}
		}
		if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
			break
		}

		attrs := []sharedtypes.Attribute{contract}
		for _, in := range ev.Inputs {
			attrs = append(attrs, sharedtypes.NewAttribute(in.Name, formatValue(values[in.Name])))
		}
		return sharedtypes.NewEvent(ev.Name, attrs...)
	}
	return sharedtypes.NewEvent("log", contract, sharedtypes.NewAttribute("topic", lg.Topics[0].Hex()))
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case fmt.Stringer:
		return t.String()
	case []byte:
		return fmt.Sprintf("0x%x", t)
	default:
		return fmt.Sprint(t)
	}
}
