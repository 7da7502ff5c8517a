package storyctl

import (
	"encoding/json"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

type vapidKeys struct {
	VAPIDPublicKey  string `json:"vapid_public_key" toml:"vapid_public_key"`
	VAPIDPrivateKey string `json:"vapid_private_key" toml:"vapid_private_key"`
}

func newVAPIDCmd(rt *runtime) *cobra.Command {
	vapid := &cobra.Command{
		Use:   "vapid",
		Short: "VAPID application server keys",
	}

	var format string
	keygen := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a VAPID key pair",
		Long: `Generate a P-256 VAPID key pair for the story server.

The public key goes into the agent config as vapid_public_key; the private
key signs pushes sent with "storyctl push send".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			priv, pub, err := webpush.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			keys := vapidKeys{VAPIDPublicKey: pub, VAPIDPrivateKey: priv}

			var out []byte
			switch format {
			case "toml":
				out, err = toml.Marshal(keys)
			default:
				out, err = json.MarshalIndent(keys, "", "  ")
				out = append(out, '\n')
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	keygen.Flags().StringVar(&format, "format", "json", "output format: json or toml")

	vapid.AddCommand(keygen)
	return vapid
}
