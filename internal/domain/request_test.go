package domain

import (
	"errors"
	"testing"
)

func TestParseRequestType(t *testing.T) {
	tests := []struct {
		raw     string
		want    RequestType
		wantErr bool
	}{
		{raw: "Lab", want: RequestTypeLab},
		{raw: "document", want: RequestTypeDocument},
		{raw: " DATA ", want: RequestTypeData},
		{raw: "Book", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRequestType(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequestType) {
					t.Fatalf("expected ErrInvalidRequestType, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected %s, got %s (err=%v)", tt.want, got, err)
			}
		})
	}
}

func TestRequestDetailsValidate(t *testing.T) {
	tests := []struct {
		name        string
		requestType RequestType
		details     RequestDetails
		wantErr     error
	}{
		{name: "document with title", requestType: RequestTypeDocument, details: RequestDetails{Document: &DocumentDetails{Title: "Deep Residual Learning"}}},
		{name: "document with doi only", requestType: RequestTypeDocument, details: RequestDetails{Document: &DocumentDetails{DOI: "10.1109/CVPR.2016.90"}}},
		{name: "document blank", requestType: RequestTypeDocument, details: RequestDetails{Document: &DocumentDetails{Title: "  "}}, wantErr: ErrInvalidRequestDetails},
		{name: "document missing", requestType: RequestTypeDocument, details: RequestDetails{Lab: &LabDetails{LabName: "Optics"}}, wantErr: ErrInvalidRequestDetails},
		{name: "lab", requestType: RequestTypeLab, details: RequestDetails{Lab: &LabDetails{LabName: "Optics"}}},
		{name: "lab without name", requestType: RequestTypeLab, details: RequestDetails{Lab: &LabDetails{Equipment: "Laser"}}, wantErr: ErrInvalidRequestDetails},
		{name: "data", requestType: RequestTypeData, details: RequestDetails{Data: &DataDetails{Description: "Census microdata"}}},
		{name: "data missing", requestType: RequestTypeData, wantErr: ErrInvalidRequestDetails},
		{name: "unknown type", requestType: RequestType("Book"), details: RequestDetails{Document: &DocumentDetails{Title: "x"}}, wantErr: ErrInvalidRequestType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.details.Validate(tt.requestType)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserRequestIsOpen(t *testing.T) {
	tests := []struct {
		name string
		req  UserRequest
		want bool
	}{
		{name: "pending", req: UserRequest{Status: RequestStatusPending}, want: true},
		{name: "in progress", req: UserRequest{Status: RequestStatusInProgress}, want: true},
		{name: "approved", req: UserRequest{Status: RequestStatusApproved}},
		{name: "rejected", req: UserRequest{Status: RequestStatusRejected}},
		{name: "deleted pending", req: UserRequest{Status: RequestStatusPending, IsDeleted: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.IsOpen(); got != tt.want {
				t.Fatalf("IsOpen() = %t, want %t", got, tt.want)
			}
		})
	}
}
