package cli

import (
	"github.com/spf13/cobra"

	"brent_opt/internal/config"
	"brent_opt/internal/optimizer"
	"brent_opt/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := optimizer.ParseMethod(a.cfg.Method)
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Logger:   a.logger,
				Defaults: a.cfg.Settings(),
				Method:   method,
			})
			return srv.ListenAndServe(cmd.Context(), a.cfg.Addr)
		},
	}
	cmd.Flags().String("addr", config.DefaultAddr, "адрес для прослушивания")
	cmd.Flags().Float64("tol", optimizer.DefaultTol, "точность по умолчанию")
	cmd.Flags().Int("max-iter", optimizer.DefaultMaxIter, "максимальное количество итераций по умолчанию")
	cmd.Flags().String("method", string(optimizer.MethodBrent), "метод по умолчанию")
	return cmd
}
