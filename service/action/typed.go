package action

import (
	"context"

	"github.com/viant/structology/conv"

	"github.com/flowgate/flowgate/service/loader"
)

// Typed adapts a function taking a typed input to the Action interface. The
// job payload (Context.Data) is converted into a fresh *T before each call,
// so implementations get a typed view without hand-rolled map plumbing.
func Typed[T any](fn func(ctx context.Context, ec *loader.Context, input *T) (interface{}, error)) Action {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	converter := conv.NewConverter(options)

	return Func(func(ctx context.Context, ec *loader.Context) (interface{}, error) {
		input := new(T)
		if len(ec.Data) > 0 {
			if err := converter.Convert(ec.Data, input); err != nil {
				return nil, err
			}
		}
		return fn(ctx, ec, input)
	})
}
