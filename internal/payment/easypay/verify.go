package easypay

import (
	"context"
	"errors"
	"strings"
	"time"
)

// verifyStep 承认流程的状态。
type verifyStep int

const (
	stepApproval verifyStep = iota
	stepQuery
	stepApproved
	stepFailed
)

func (s verifyStep) String() string {
	switch s {
	case stepApproval:
		return "approval"
	case stepQuery:
		return "query"
	case stepApproved:
		return "approved"
	default:
		return "failed"
	}
}

// VerifyInput 支付确认输入。
type VerifyInput struct {
	ShopOrderNo     string
	AuthorizationID string
	Now             time.Time
}

// nextVerifyState 承认流程状态迁移：
// Approval 成功 -> Approved；Approval 被拒且 code=R102 -> Query；Query 成功 -> Approved；其余 -> Failed。
func nextVerifyState(step verifyStep, err error) verifyStep {
	switch step {
	case stepApproval:
		if err == nil {
			return stepApproved
		}
		var rejectErr *RejectError
		if errors.As(err, &rejectErr) && rejectErr.Code == ResultCodeAutoApproved {
			return stepQuery
		}
		return stepFailed
	case stepQuery:
		if err == nil {
			return stepApproved
		}
		return stepFailed
	default:
		return step
	}
}

// Verify 执行承认流程，R102 时回退到状态查询。
func Verify(ctx context.Context, cfg *Config, input VerifyInput) (*ApprovalResult, error) {
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	shopOrderNo := strings.TrimSpace(input.ShopOrderNo)

	var (
		step        = stepApproval
		result      *ApprovalResult
		lastErr     error
		approvalErr error
	)
	for step != stepApproved && step != stepFailed {
		switch step {
		case stepApproval:
			transactionID, err := NewShopTransactionID(now)
			if err != nil {
				return nil, err
			}
			result, lastErr = Approve(ctx, cfg, ApproveInput{
				ShopOrderNo:       shopOrderNo,
				ShopTransactionID: transactionID,
				ApprovalReqDate:   ApprovalReqDate(now),
				AuthorizationID:   input.AuthorizationID,
			})
			approvalErr = lastErr
		case stepQuery:
			result, lastErr = Query(ctx, cfg, shopOrderNo)
		}
		step = nextVerifyState(step, lastErr)
	}
	if step == stepFailed {
		var queryReject *RejectError
		if approvalErr != nil && lastErr != approvalErr && errors.As(lastErr, &queryReject) {
			// 查询同样被拒时以承认接口的结果码为准
			return nil, approvalErr
		}
		return nil, lastErr
	}
	if result.ShopOrderNo == "" {
		result.ShopOrderNo = shopOrderNo
	}
	return result, nil
}
