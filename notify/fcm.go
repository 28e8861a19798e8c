package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/glachaux/reunion-rooms/config"
)

const defaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMMessenger sends through the FCM HTTP API, authenticated with the server
// key from the configuration.
type FCMMessenger struct {
	endpoint string
	key      string
	client   *http.Client
}

func NewFCMMessenger(cfg *config.Config) *FCMMessenger {
	endpoint := cfg.NotifyConfig.FCMEndpoint
	if endpoint == "" {
		endpoint = defaultFCMEndpoint
	}
	return &FCMMessenger{
		endpoint: endpoint,
		key:      cfg.NotifyConfig.FCMKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type fcmRequest struct {
	RegistrationIds []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

func (m *FCMMessenger) Send(tokens []string, n Notification) (SendResult, error) {
	body, err := json.Marshal(fcmRequest{
		RegistrationIds: tokens,
		Notification:    fcmNotification{Title: n.Title, Body: n.Body},
		Data:            n.Data,
	})
	if err != nil {
		return SendResult{}, err
	}
	req, err := http.NewRequest(http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+m.key)
	resp, err := m.client.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return SendResult{}, fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
	var parsed fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return SendResult{}, err
	}
	res := SendResult{Success: parsed.Success, Failure: parsed.Failure}
	for i, r := range parsed.Results {
		if i >= len(tokens) {
			break
		}
		switch r.Error {
		case "NotRegistered", "InvalidRegistration", "MismatchSenderId":
			res.Invalid = append(res.Invalid, tokens[i])
		}
	}
	return res, nil
}
