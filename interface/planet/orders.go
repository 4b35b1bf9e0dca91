package planet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-spatial/geom"
	"github.com/spatialops/planet-extractor/common"
	"github.com/spatialops/planet-extractor/service"
	"github.com/spatialops/planet-extractor/service/log"
)

// OrderRequest is a clip order referencing one scene.
type OrderRequest struct {
	Name     string    `json:"name"`
	Products []Product `json:"products"`
	Tools    []Tool    `json:"tools"`
}

type Product struct {
	ItemIDs       []string      `json:"item_ids"`
	ItemType      string        `json:"item_type"`
	ProductBundle common.Bundle `json:"product_bundle"`
}

type Tool struct {
	Clip *ClipTool `json:"clip,omitempty"`
}

type ClipTool struct {
	AOI json.RawMessage `json:"aoi"`
}

// Order is the provider's view of a submitted order.
type Order struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	State common.Status `json:"state"`
	Links OrderLinks    `json:"_links"`
}

type OrderLinks struct {
	Self    string        `json:"_self"`
	Results []OrderResult `json:"results"`
}

type OrderResult struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ErrPollBudget is a client-side give-up: the order may still complete
// server-side, no cancellation is sent.
type ErrPollBudget struct {
	OrderID  string
	Attempts int
	State    common.Status
}

func (e ErrPollBudget) Error() string {
	return fmt.Sprintf("order %s still %s after %d polls", e.OrderID, e.State, e.Attempts)
}

// NewClipOrder builds the order request for one scene clipped to the AOI.
func NewClipOrder(name string, scene common.Scene, bundle common.Bundle, aoi geom.Geometry) (OrderRequest, error) {
	aoiJSON, err := service.MarshalGeometry(aoi)
	if err != nil {
		return OrderRequest{}, fmt.Errorf("NewClipOrder.%w", err)
	}
	return OrderRequest{
		Name: name,
		Products: []Product{{
			ItemIDs:       []string{scene.ID},
			ItemType:      scene.ItemType,
			ProductBundle: bundle,
		}},
		Tools: []Tool{{Clip: &ClipTool{AOI: aoiJSON}}},
	}, nil
}

// CreateOrder submits the order. Only 202 is a success, 4xx are surfaced as
// APIError without retry.
func (c *Client) CreateOrder(ctx context.Context, orderRequest OrderRequest) (Order, error) {
	payload, err := json.Marshal(&orderRequest)
	if err != nil {
		return Order{}, fmt.Errorf("CreateOrder.Marshal: %w", err)
	}

	var body []byte
	if err := service.Retriable(ctx, func() error {
		req, err := c.newRequest(http.MethodPost, c.OrdersEndpoint, bytes.NewReader(payload))
		if err != nil {
			return service.MakeFatal(err)
		}
		body, err = c.doOnce(req.WithContext(ctx), http.StatusAccepted)
		return err
	}, time.Second, c.RetryCount); err != nil {
		return Order{}, fmt.Errorf("CreateOrder: %w", err)
	}

	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return Order{}, fmt.Errorf("CreateOrder.Unmarshal: %w", err)
	}
	log.Logger(ctx).Sugar().Infof("order %s placed (%s)", order.ID, order.State)
	return order, nil
}

// GetOrder reads the order status. The read is idempotent, 4xx are surfaced
// as APIError without retry.
func (c *Client) GetOrder(ctx context.Context, url string) (Order, error) {
	var body []byte
	if err := service.Retriable(ctx, func() error {
		req, err := c.newRequest(http.MethodGet, url, nil)
		if err != nil {
			return service.MakeFatal(err)
		}
		body, err = c.doOnce(req.WithContext(ctx), http.StatusOK)
		return err
	}, time.Second, c.RetryCount); err != nil {
		return Order{}, fmt.Errorf("GetOrder: %w", err)
	}
	var order Order
	if err := json.Unmarshal(body, &order); err != nil {
		return Order{}, fmt.Errorf("GetOrder.Unmarshal: %w", err)
	}
	return order, nil
}

// WaitForOrder polls the order at a fixed interval until it reaches a
// terminal state, up to maxPolls attempts.
func (c *Client) WaitForOrder(ctx context.Context, order Order, interval time.Duration, maxPolls int) (Order, error) {
	url := order.Links.Self
	if url == "" {
		url = c.OrdersEndpoint + "/" + order.ID
	}
	for i := 0; i < maxPolls; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return order, ctx.Err()
			case <-time.After(interval):
			}
		}
		polled, err := c.GetOrder(ctx, url)
		if err != nil {
			return order, fmt.Errorf("WaitForOrder.%w", err)
		}
		order = polled
		log.Logger(ctx).Sugar().Infof("order %s: %s", order.ID, order.State)
		if order.State.Terminal() {
			return order, nil
		}
	}
	return order, ErrPollBudget{OrderID: order.ID, Attempts: maxPolls, State: order.State}
}
