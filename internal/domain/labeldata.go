/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strings"
)

// LabelItem is one line item of the bound record as shown on a label.
type LabelItem struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Specifications string `json:"specifications,omitempty"`
}

// LabelData is the flattened, read-only view of one source record as
// consumed by rendering. It is produced at the record-binding boundary and
// opaque to this core beyond path lookup (see Tree).
type LabelData struct {
	OrderID          string         `json:"orderId"`
	OrderNumber      string         `json:"orderNumber"`
	CustomerName     string         `json:"customerName"`
	CustomerAddress  string         `json:"customerAddress"`
	Products         []LabelItem    `json:"products"`
	Priority         string         `json:"priority"`
	TotalAmount      float64        `json:"totalAmount"`
	ExpectedDelivery string         `json:"expectedDelivery"`
	TrackingNumber   string         `json:"trackingNumber,omitempty"`
	Barcode          string         `json:"barcode,omitempty"`
	QRCode           string         `json:"qrCode,omitempty"`
	Custom           map[string]any `json:"customFields,omitempty"`
}

// Tree returns the generic key-value view a dataSource path resolves
// against. Line items appear as a slice of maps; custom fields live under
// "customFields".
func (d LabelData) Tree() map[string]any {
	products := make([]any, len(d.Products))
	for i, p := range d.Products {
		products[i] = map[string]any{
			"name":           p.Name,
			"quantity":       p.Quantity,
			"specifications": p.Specifications,
		}
	}
	m := map[string]any{
		"orderId":          d.OrderID,
		"orderNumber":      d.OrderNumber,
		"customerName":     d.CustomerName,
		"customerAddress":  d.CustomerAddress,
		"products":         products,
		"priority":         d.Priority,
		"totalAmount":      d.TotalAmount,
		"expectedDelivery": d.ExpectedDelivery,
		"trackingNumber":   d.TrackingNumber,
		"barcode":          d.Barcode,
		"qrCode":           d.QRCode,
	}
	if len(d.Custom) > 0 {
		m["customFields"] = d.Custom
	}
	return m
}

// GenerateLabelData flattens an external order record into a LabelData view.
// The record shape is whatever the surrounding order store supplies; missing
// keys simply produce zero values.
func GenerateLabelData(order map[string]any) LabelData {
	d := LabelData{
		OrderID:          str(order["id"]),
		OrderNumber:      str(order["orderNumber"]),
		CustomerName:     str(order["customerName"]),
		CustomerAddress:  formatAddress(order["shippingAddress"]),
		Priority:         str(order["priority"]),
		TotalAmount:      num(order["totalAmount"]),
		ExpectedDelivery: str(order["expectedDeliveryDate"]),
		TrackingNumber:   str(order["trackingNumber"]),
	}
	d.Barcode = d.OrderNumber
	d.QRCode = "https://example.com/order/" + d.OrderID
	if items, ok := order["items"].([]any); ok {
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			name := str(m["productName"])
			if name == "" {
				name = "Unknown Product"
			}
			d.Products = append(d.Products, LabelItem{
				Name:           name,
				Quantity:       int(num(m["quantity"])),
				Specifications: str(m["specifications"]),
			})
		}
	}
	custom := map[string]any{}
	for _, k := range []string{"orderType", "salesWindowId", "assignedTo"} {
		if v, ok := order[k]; ok {
			custom[k] = v
		}
	}
	if len(custom) > 0 {
		d.Custom = custom
	}
	return d
}

// formatAddress flattens a nested address object into one display line.
func formatAddress(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	street, city := str(m["street"]), str(m["city"])
	stateZip := strings.TrimSpace(str(m["state"]) + " " + str(m["zipCode"]))
	parts := make([]string, 0, 3)
	for _, p := range []string{street, city, stateZip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
