// Package handler defines job handlers and the table that maps job types to
// them.
//
// A handler is either stateless, a function over the job's arguments, or
// stateful, a function of the job's last checkpoint and an update callback
// that returns a function over the arguments. Calling the update callback
// persists a new checkpoint before the handler continues, so the next
// attempt of the same job resumes from it.
//
//	h := handler.Stateful("upload", func(state json.RawMessage, update handler.UpdateFunc) handler.Func {
//	    var sent int
//	    _, _ = core.DecodeState(state, &sent)
//	    return func(ctx context.Context, args core.Args) error {
//	        for ; sent < total; sent++ {
//	            // ...
//	            if err := update(ctx, sent+1); err != nil {
//	                return err
//	            }
//	        }
//	        return nil
//	    }
//	})
package handler
