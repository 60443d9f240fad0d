package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping checks that the daemon answers.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Ftumix.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Ftumix.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Ftumix.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Volume reads one route volume. Channels are 1-based.
func (c *Client) Volume(domain string, input, output int) (*VolumeResponse, error) {
	var resp VolumeResponse
	req := VolumeRequest{Domain: domain, Input: input, Output: output}
	if err := c.client.Call("Ftumix.Volume", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetVolume writes one route volume. Channels are 1-based.
func (c *Client) SetVolume(domain string, input, output, volume int) (*SetVolumeResponse, error) {
	var resp SetVolumeResponse
	req := SetVolumeRequest{Domain: domain, Input: input, Output: output, Volume: volume}
	if err := c.client.Call("Ftumix.SetVolume", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Routes returns the full matrix for one domain, or both when domain is
// empty.
func (c *Client) Routes(domain string) (*RoutesResponse, error) {
	var resp RoutesResponse
	if err := c.client.Call("Ftumix.Routes", RoutesRequest{Domain: domain}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Effects lists the effect controls and their current values.
func (c *Client) Effects() (*EffectsResponse, error) {
	var resp EffectsResponse
	if err := c.client.Call("Ftumix.Effects", EffectsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DisableEffects zeroes every volume-capable effect control.
func (c *Client) DisableEffects() (*DisableEffectsResponse, error) {
	var resp DisableEffectsResponse
	if err := c.client.Call("Ftumix.DisableEffects", DisableEffectsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MuteMostDigital mutes every digital route except the diagonal.
func (c *Client) MuteMostDigital() (*MuteMostDigitalResponse, error) {
	var resp MuteMostDigitalResponse
	if err := c.client.Call("Ftumix.MuteMostDigital", MuteMostDigitalRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MuteAnalog mutes every analog route.
func (c *Client) MuteAnalog() (*MuteAnalogResponse, error) {
	var resp MuteAnalogResponse
	if err := c.client.Call("Ftumix.MuteAnalog", MuteAnalogRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PassThrough sets the analog diagonal to full volume.
func (c *Client) PassThrough() (*PassThroughResponse, error) {
	var resp PassThroughResponse
	if err := c.client.Call("Ftumix.PassThrough", PassThroughRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Master reads the master volume.
func (c *Client) Master() (*MasterResponse, error) {
	var resp MasterResponse
	if err := c.client.Call("Ftumix.Master", MasterRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetMaster writes the master volume.
func (c *Client) SetMaster(volume int) (*SetMasterResponse, error) {
	var resp SetMasterResponse
	if err := c.client.Call("Ftumix.SetMaster", SetMasterRequest{Volume: volume}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Links returns the link target for every output. Channels are 1-based and
// a zero target means unlinked.
func (c *Client) Links() (*LinksResponse, error) {
	var resp LinksResponse
	if err := c.client.Call("Ftumix.Links", LinksRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetLink links one output's analog column to a target output. Channels are
// 1-based.
func (c *Client) SetLink(output, target int) (*SetLinkResponse, error) {
	var resp SetLinkResponse
	req := SetLinkRequest{Output: output, Target: target}
	if err := c.client.Call("Ftumix.SetLink", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearLink removes one output's link. Channels are 1-based.
func (c *Client) ClearLink(output int) (*ClearLinkResponse, error) {
	var resp ClearLinkResponse
	if err := c.client.Call("Ftumix.ClearLink", ClearLinkRequest{Output: output}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SavePreset writes the current mixer state to a preset file.
func (c *Client) SavePreset(path string) (*SavePresetResponse, error) {
	var resp SavePresetResponse
	if err := c.client.Call("Ftumix.SavePreset", SavePresetRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoadPreset applies a preset file to the hardware.
func (c *Client) LoadPreset(path string) (*LoadPresetResponse, error) {
	var resp LoadPresetResponse
	if err := c.client.Call("Ftumix.LoadPreset", LoadPresetRequest{Path: path}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns journal entries newer than the given sequence number.
func (c *Client) Events(since uint64) (*EventsResponse, error) {
	var resp EventsResponse
	if err := c.client.Call("Ftumix.Events", EventsRequest{Since: since}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
