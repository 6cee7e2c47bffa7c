package i18n

var messages = map[string]map[string]string{
	LocaleKO: {
		"error.bad_request":               "잘못된 요청입니다",
		"error.validation":                "입력값이 올바르지 않습니다",
		"error.validation_field":          "입력값이 올바르지 않습니다: %s",
		"error.not_found":                 "요청한 리소스를 찾을 수 없습니다",
		"error.product_not_found":         "상품을 찾을 수 없습니다",
		"error.product_fetch_failed":      "상품 정보를 불러오지 못했습니다",
		"error.delivery_method_invalid":   "유효하지 않은 배송 방법입니다",
		"error.delivery_fetch_failed":     "배송 방법을 불러오지 못했습니다",
		"error.order_item_invalid":        "주문 상품 정보가 올바르지 않습니다",
		"error.order_create_failed":       "주문 생성에 실패했습니다",
		"error.insufficient_stock":        "재고가 부족합니다",
		"error.persistence":               "데이터 저장 중 오류가 발생했습니다",
		"error.gateway_config":            "결제 설정이 올바르지 않습니다",
		"error.gateway_rejected":          "결제 등록이 거절되었습니다",
		"error.gateway_unavailable":       "결제 서버와 통신할 수 없습니다",
		"error.payment_rejected":          "결제가 승인되지 않았습니다",
		"error.payment_not_found":         "결제 정보를 찾을 수 없습니다",
		"error.payment_in_progress":       "결제 승인이 진행 중입니다",
		"error.payment_expired":           "결제 유효 시간이 만료되었습니다. 다시 결제해주세요",
		"error.payment_amount_mismatch":   "결제 금액이 일치하지 않습니다",
		"error.payment_amount_invalid":    "결제 금액이 올바르지 않습니다",
		"error.payment_not_verified":      "결제가 확인되지 않았습니다",
		"error.payment_provider_mismatch": "결제 수단이 일치하지 않습니다",
		"error.cart_item_invalid":         "장바구니 상품 정보가 올바르지 않습니다",
		"error.cart_session_invalid":      "장바구니 세션이 유효하지 않습니다",
		"error.too_many_requests":         "요청이 너무 많습니다. 잠시 후 다시 시도해주세요",
		"error.rate_limited":              "요청이 너무 많습니다. %d초 후 다시 시도해주세요",
		"error.internal":                  "서버 내부 오류가 발생했습니다",
		"email.order_created.subject":     "[The Union] 주문이 접수되었습니다 (%s)",
		"email.order_created.greeting":    "%s님, 주문해 주셔서 감사합니다.",
		"email.order_created.summary":     "주문번호: %s\n배송 방법: %s\n결제 금액: %s %s",
		"email.order_created.items":       "주문 상품",
		"email.order_created.footer":      "문의 사항은 이 메일에 회신해 주세요.",
	},
	LocaleEN: {
		"error.bad_request":               "Bad request",
		"error.validation":                "Invalid input",
		"error.validation_field":          "Invalid input: %s",
		"error.not_found":                 "Resource not found",
		"error.product_not_found":         "Product not found",
		"error.product_fetch_failed":      "Failed to fetch products",
		"error.delivery_method_invalid":   "Invalid delivery method",
		"error.delivery_fetch_failed":     "Failed to fetch delivery methods",
		"error.order_item_invalid":        "Invalid order item",
		"error.order_create_failed":       "Failed to create order",
		"error.insufficient_stock":        "Insufficient stock",
		"error.persistence":               "Failed to persist data",
		"error.gateway_config":            "Payment gateway is not configured",
		"error.gateway_rejected":          "Payment registration was rejected",
		"error.gateway_unavailable":       "Payment gateway is unavailable",
		"error.payment_rejected":          "Payment was not approved",
		"error.payment_not_found":         "Payment not found",
		"error.payment_in_progress":       "Payment approval is in progress",
		"error.payment_expired":           "Payment has expired, please start a new payment",
		"error.payment_amount_mismatch":   "Payment amount mismatch",
		"error.payment_amount_invalid":    "Invalid payment amount",
		"error.payment_not_verified":      "Payment has not been verified",
		"error.payment_provider_mismatch": "Payment provider mismatch",
		"error.cart_item_invalid":         "Invalid cart item",
		"error.cart_session_invalid":      "Invalid cart session",
		"error.too_many_requests":         "Too many requests, please try again later",
		"error.rate_limited":              "Too many requests, please retry in %d seconds",
		"error.internal":                  "Internal server error",
		"email.order_created.subject":     "[The Union] Order received (%s)",
		"email.order_created.greeting":    "Thank you for your order, %s.",
		"email.order_created.summary":     "Order No: %s\nDelivery: %s\nAmount: %s %s",
		"email.order_created.items":       "Items",
		"email.order_created.footer":      "Reply to this email if you have any questions.",
	},
}
