package api

import (
	"context"
	"net/http"
	"strings"

	"foodviz/internal/domain"
)

// ConversionRequest is the exact body of POST /admin/convert-3d.
type ConversionRequest struct {
	ProductID string `json:"productId"`
	ImageURL  string `json:"imageUrl"`
}

// ConversionAck confirms the job was queued. It never means the model is ready.
type ConversionAck struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"jobId,omitempty"`
}

// StartConversion asks the backend to enqueue a 3D conversion job.
func (c *Client) StartConversion(ctx context.Context, productID, imageURL string) (ConversionAck, error) {
	body := ConversionRequest{ProductID: strings.TrimSpace(productID), ImageURL: strings.TrimSpace(imageURL)}
	if body.ProductID == "" {
		return ConversionAck{}, &domain.FieldError{Field: "productId", Message: "product id is required"}
	}
	if body.ImageURL == "" {
		return ConversionAck{}, &domain.FieldError{Field: "imageUrl", Message: "image url is required"}
	}
	req, err := jsonRequest(http.MethodPost, "/admin/convert-3d", body, true)
	if err != nil {
		return ConversionAck{}, err
	}
	var ack ConversionAck
	if err := c.doJSON(ctx, req, &ack); err != nil {
		return ConversionAck{}, err
	}
	c.logger.Info().
		Str("product_id", body.ProductID).
		Str("job_id", ack.JobID).
		Msg("api: conversion queued")
	return ack, nil
}
