package create

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/quickbite/order_fulfillment/internal/repository/mocks"
	createService "github.com/quickbite/order_fulfillment/internal/services/order/create"
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

func TestCreateOrder(t *testing.T) {
	log := logger.NewSlogLogger(logger.EnvLocal)

	ctl := gomock.NewController(t)
	defer ctl.Finish()

	repoCreator := mocks.NewMockOrderCreator(ctl)

	createSvc := createService.New(log, repoCreator)
	h := NewHandler(log, createSvc)

	customerID := uuid.New()
	productID := uuid.New()

	type mockBehavior func(mockRepo *mocks.MockOrderCreator, expResponse uuid.UUID)

	tCases := []struct {
		name          string
		reqBody       string
		mockBehavior  mockBehavior
		expStatusCode int
	}{
		{
			name: "OK",
			reqBody: fmt.Sprintf(`
				{
					"customerId": "%s",
					"items": [
						{
							"productId": "%s",
							"name": "Burger",
							"price": 25,
							"quantity": 2
						}
					]
				}`, customerID, productID),
			mockBehavior: func(mockRepo *mocks.MockOrderCreator, expResponse uuid.UUID) {
				mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(expResponse, nil)
			},
			expStatusCode: http.StatusCreated,
		},
		{
			name:          "bad_json",
			reqBody:       `{"customerId":`,
			mockBehavior:  func(_ *mocks.MockOrderCreator, _ uuid.UUID) {},
			expStatusCode: http.StatusBadRequest,
		},
		{
			name: "validation_failed",
			reqBody: fmt.Sprintf(`
				{
					"customerId": "%s",
					"items": []
				}`, customerID),
			mockBehavior:  func(_ *mocks.MockOrderCreator, _ uuid.UUID) {},
			expStatusCode: http.StatusBadRequest,
		},
		{
			name: "storage_error",
			reqBody: fmt.Sprintf(`
				{
					"customerId": "%s",
					"items": [
						{
							"productId": "%s",
							"name": "Burger",
							"price": 25,
							"quantity": 2
						}
					]
				}`, customerID, productID),
			mockBehavior: func(mockRepo *mocks.MockOrderCreator, _ uuid.UUID) {
				mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
					Return(uuid.Nil, errors.New("connection refused"))
			},
			expStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			expOrderID := uuid.New()
			tCase.mockBehavior(repoCreator, expOrderID)

			req := httptest.NewRequest(http.MethodPost, "/order", bytes.NewBufferString(tCase.reqBody))
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			require.Equal(t, tCase.expStatusCode, rec.Code)

			if tCase.expStatusCode == http.StatusCreated {
				var response map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
				require.Equal(t, expOrderID.String(), response["orderId"])
			}
		})
	}
}
