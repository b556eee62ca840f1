// Package ethereum provides the read-only client for the Fans3 shares
// contract. It never sends transactions; every method is a bare eth_call.
package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Read surface of the shares contract. Supply and balance gate membership;
// price and holdings feed the listing flows only.
const sharesABI = `[
	{"type":"function","name":"sharesSupply","stateMutability":"view","inputs":[{"name":"sharesSubject","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sharesBalance","stateMutability":"view","inputs":[{"name":"sharesSubject","type":"address"},{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getBuyPrice","stateMutability":"view","inputs":[{"name":"sharesSubject","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getHoldings","stateMutability":"view","inputs":[{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"address[]"}]}
]`

type Client struct {
	ec          *ethclient.Client
	contract    common.Address
	abi         abi.ABI
	callTimeout time.Duration
}

// Dial connects to the JSON-RPC endpoint and prepares the contract binding.
func Dial(ctx context.Context, rpcURL, contractAddress string, callTimeout time.Duration) (*Client, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(sharesABI))
	if err != nil {
		return nil, fmt.Errorf("parse shares abi: %w", err)
	}
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	return &Client{
		ec:          ec,
		contract:    common.HexToAddress(contractAddress),
		abi:         parsed,
		callTimeout: callTimeout,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := c.ec.CallContract(ctx, geth.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := c.abi.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// SharesSupply returns the total share supply of a subject address.
func (c *Client) SharesSupply(ctx context.Context, subject common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "sharesSupply", subject)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// SharesBalance returns how many of the subject's shares the holder owns.
func (c *Client) SharesBalance(ctx context.Context, subject, holder common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "sharesBalance", subject, holder)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// BuyPrice returns the current price in wei for buying amount shares of the
// subject. Informational only; decisions never depend on it.
func (c *Client) BuyPrice(ctx context.Context, subject common.Address, amount *big.Int) (*big.Int, error) {
	out, err := c.call(ctx, "getBuyPrice", subject, amount)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Holdings returns the subject addresses whose shares the holder owns.
func (c *Client) Holdings(ctx context.Context, holder common.Address) ([]common.Address, error) {
	out, err := c.call(ctx, "getHoldings", holder)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// Close tears down the RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}
