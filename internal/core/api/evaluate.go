package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/condmatch/internal/rules"
)

// Evaluate runs one subject against inline rules or a catalog rule set.
func (s *MatchService) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := s.matcher(ctx, req)
	if err != nil {
		return nil, err
	}

	subject, ok := req.GetFields()["subject"]
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "subject required")
	}

	res, err := m.RunDetailed(rules.NewJSONDocument(subject.AsInterface()))
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := structpb.NewStruct(resultFields(res, detailed(req)))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// EvaluateBatch runs every subject against one tree in parallel. Results are
// index-aligned with the request's subjects.
func (s *MatchService) EvaluateBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m, err := s.matcher(ctx, req)
	if err != nil {
		return nil, err
	}

	list := req.GetFields()["subjects"].GetListValue()
	if list == nil {
		return nil, status.Error(codes.InvalidArgument, "subjects must be a list")
	}
	// Reject batches exceeding max size
	if len(list.GetValues()) > s.maxBatchSize {
		return nil, status.Errorf(codes.InvalidArgument, "batch size exceeds maximum of %d subjects", s.maxBatchSize)
	}

	subjects := make([]*rules.JSONDocument, len(list.GetValues()))
	for i, v := range list.GetValues() {
		subjects[i] = rules.NewJSONDocument(v.AsInterface())
	}

	results, err := rules.ParallelRunDetailed(ctx, m, subjects, s.workers)
	if err != nil {
		return nil, toStatus(err)
	}

	detail := detailed(req)
	items := make([]any, len(results))
	matched := 0
	for i, r := range results {
		items[i] = resultFields(r, detail)
		if r.IsMatch {
			matched++
		}
	}

	s.logger.Debug("evaluated batch",
		zap.Int("subjects", len(subjects)),
		zap.Int("matched", matched))

	out, err := structpb.NewStruct(map[string]any{
		"results":       items,
		"matched_count": matched,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode result: %v", err)
	}
	return out, nil
}

// matcher resolves the request's rule source. Exactly one of "rules" and
// "rule_set" must be given.
func (s *MatchService) matcher(ctx context.Context, req *structpb.Struct) (rules.Evaluator, error) {
	fields := req.GetFields()
	inline, hasRules := fields["rules"]
	name, hasName := fields["rule_set"]

	switch {
	case hasRules && hasName:
		return nil, status.Error(codes.InvalidArgument, "give either rules or rule_set, not both")

	case hasRules:
		var doc any = inline.AsInterface()
		if text, ok := inline.GetKind().(*structpb.Value_StringValue); ok {
			doc = []byte(text.StringValue)
		}
		m, err := rules.FromValue(doc, rules.WithEngine(s.engine))
		if err != nil {
			return nil, toStatus(err)
		}
		return m, nil

	case hasName:
		if s.catalog == nil {
			return nil, status.Error(codes.FailedPrecondition, "rule catalog not configured")
		}
		m, err := s.catalog.Matcher(ctx, name.GetStringValue())
		if err != nil {
			return nil, toStatus(err)
		}
		return m, nil

	default:
		return nil, status.Error(codes.InvalidArgument, "rules or rule_set required")
	}
}

func detailed(req *structpb.Struct) bool {
	return req.GetFields()["detailed"].GetBoolValue()
}

// resultFields renders one subject's outcome. The reported error is the first
// leaf error in declaration order, the one Run would return.
func resultFields(r rules.MatchResult, detail bool) map[string]any {
	fields := map[string]any{"matched": r.IsMatch}
	if errs := r.Errors(); len(errs) > 0 {
		fields["error"] = errs[0].Error()
	}
	if !detail {
		return fields
	}

	leaves := r.AllConditionResults()
	conditions := make([]any, len(leaves))
	for i, leaf := range leaves {
		c := map[string]any{
			"description": leaf.Description,
			"passed":      leaf.Passed,
		}
		if leaf.Error != nil {
			c["error"] = leaf.Error.Error()
		}
		if leaf.Actual.IsValid() {
			c["actual"] = fmt.Sprint(leaf.Actual.Interface())
		}
		conditions[i] = c
	}
	fields["conditions"] = conditions
	return fields
}
