package rpc

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"

	"vmtimer/emu"
)

type Client struct {
	client *rpc.Client
}

func NewClient(port int) (*Client, error) {
	var (
		client *rpc.Client
		err    error
	)
	const maxretries = 5
	for i := range maxretries {
		client, err = rpc.DialHTTP("tcp", "localhost:"+strconv.Itoa(port))
		if err == nil {
			break
		}
		modRPC.WarnZ("dial tcp failed").Error("err", err).Int("retry", i).End()
		time.Sleep(250 * time.Millisecond)
	}

	if err != nil {
		return nil, fmt.Errorf("dial failed max retries: %w", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	modRPC.DebugZ("closing rpc client").End()
	return c.client.Close()
}

func (c *Client) Pause() error              { return call(c.client, "vm.Pause") }
func (c *Client) Resume() error             { return call(c.client, "vm.Resume") }
func (c *Client) Stats() (emu.Stats, error) { return request[emu.Stats](c.client, "vm.Stats") }
func (c *Client) Save() ([]byte, error)     { return request[[]byte](c.client, "vm.Save") }
func (c *Client) IsReady() (bool, error)    { return request[bool](c.client, "vm.IsReady") }

func call(client *rpc.Client, funcname string) error {
	_, err := request[struct{}](client, funcname)
	return err
}

func request[T any](client *rpc.Client, funcname string) (T, error) {
	var reply T
	if err := client.Call(funcname, &struct{}{}, &reply); err != nil {
		modRPC.WarnZ("RPC call failed").String("func", funcname).Error("err", err).End()
		return reply, fmt.Errorf("%s: %w", funcname, err)
	}
	return reply, nil
}
