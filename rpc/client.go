package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/simplege/gamenet/netsync"
)

func GetInfo(endpoint string) (*Info, error) {
	var info Info
	err := callHost(endpoint, "getinfo", nil, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func ListPeers(endpoint string) ([]netsync.PeerStatus, error) {
	var peers []netsync.PeerStatus
	err := callHost(endpoint, "listpeers", nil, &peers)
	return peers, err
}

func GetMetric(endpoint string) (map[string]*netsync.MetricPool, error) {
	var metric map[string]*netsync.MetricPool
	err := callHost(endpoint, "getmetric", nil, &metric)
	return metric, err
}

// callHost posts one call to a host status endpoint and decodes the data
// field into out.
func callHost(endpoint, method string, params []any, out any) error {
	client := &http.Client{Timeout: 20 * time.Second}

	body, err := json.Marshal(Call{Method: method, Params: params})
	if err != nil {
		panic(err)
	}
	req, err := http.NewRequest("POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Close = true
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return fmt.Errorf("%s %s => %d %s", endpoint, method, resp.StatusCode, err.Error())
	}
	if result.Error != "" {
		return fmt.Errorf("%s %s => %s", endpoint, method, result.Error)
	}
	if len(result.Data) == 0 {
		return fmt.Errorf("%s %s => empty data", endpoint, method)
	}
	return json.Unmarshal(result.Data, out)
}
